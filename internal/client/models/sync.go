package models

// Track identifies one of the two independently saved parts of a note.
type Track int

const (
	TrackTitle Track = iota
	TrackContent
)

func (t Track) String() string {
	switch t {
	case TrackTitle:
		return "title"
	case TrackContent:
		return "content"
	}
	return "unknown"
}

// SaveState is the per-track save state machine:
// Synced -> Dirty -> Saving -> Synced, with Failed reachable from Saving.
type SaveState int

const (
	SaveStateSynced SaveState = iota
	SaveStateDirty
	SaveStateSaving
	SaveStateFailed
)

func (s SaveState) String() string {
	switch s {
	case SaveStateSynced:
		return "synced"
	case SaveStateDirty:
		return "dirty"
	case SaveStateSaving:
		return "saving"
	case SaveStateFailed:
		return "failed"
	}
	return "unknown"
}

// SyncState reports, per open note, whether the last local edit of each
// track has been durably committed to the remote store.
type SyncState struct {
	TitleSynced   bool `json:"titleSynced"`
	ContentSynced bool `json:"contentSynced"`
}

// Synced returns a state with both tracks synced.
func Synced() SyncState {
	return SyncState{TitleSynced: true, ContentSynced: true}
}

// With returns a copy of s with the given track set to synced.
func (s SyncState) With(t Track, synced bool) SyncState {
	switch t {
	case TrackTitle:
		s.TitleSynced = synced
	case TrackContent:
		s.ContentSynced = synced
	}
	return s
}

// Get reports the synced flag of a track.
func (s SyncState) Get(t Track) bool {
	if t == TrackTitle {
		return s.TitleSynced
	}
	return s.ContentSynced
}
