// Package state holds the in-memory view shared by the fetch services, the
// save pipeline and the live reconciler: the active note and conversation,
// the decrypted lists, open note contents, per-note sync state and the set
// of documents whose last save failed.
//
// Every accessor returns copies; callers never hold references into the
// store's maps.
package state

import (
	"slices"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
)

// ContentView is a note's content as last loaded. Unreadable is set when the
// content key or the payload could not be decrypted, which is distinct from
// a note that simply has no content yet.
type ContentView struct {
	models.NoteContent
	Unreadable bool
}

type Store struct {
	mu sync.RWMutex

	activeNote         uuid.UUID
	activeConversation uuid.UUID

	notes    map[uuid.UUID]models.Note
	tags     map[uuid.UUID]models.Tag
	contents map[uuid.UUID]ContentView
	syncs    map[uuid.UUID]models.SyncState

	conversations map[uuid.UUID]models.Conversation
	messages      map[uuid.UUID][]models.ChatMessage

	failed map[uuid.UUID]struct{}
}

func NewStore() *Store {
	return &Store{
		notes:         make(map[uuid.UUID]models.Note),
		tags:          make(map[uuid.UUID]models.Tag),
		contents:      make(map[uuid.UUID]ContentView),
		syncs:         make(map[uuid.UUID]models.SyncState),
		conversations: make(map[uuid.UUID]models.Conversation),
		messages:      make(map[uuid.UUID][]models.ChatMessage),
		failed:        make(map[uuid.UUID]struct{}),
	}
}

func (s *Store) SetActiveNote(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeNote = id
}

func (s *Store) ActiveNote() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeNote
}

// IsActiveNote is the stale-response guard for note fetches.
func (s *Store) IsActiveNote(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id != uuid.Nil && s.activeNote == id
}

func (s *Store) SetActiveConversation(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConversation = id
}

func (s *Store) ActiveConversation() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeConversation
}

// IsActiveConversation is the stale-response guard for message fetches.
func (s *Store) IsActiveConversation(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id != uuid.Nil && s.activeConversation == id
}

func cloneNote(n models.Note) models.Note {
	n.Tags = slices.Clone(n.Tags)
	n.Participants = slices.Clone(n.Participants)
	return n
}

// ReplaceNotes swaps the whole notes list and tag set. A non-nil keep is
// applied to every incoming note under the store lock, so local values it
// restores cannot be lost to a concurrent edit.
func (s *Store) ReplaceNotes(notes []models.Note, tags []models.Tag, keep func(*models.Note)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[uuid.UUID]models.Note, len(notes))
	for _, n := range notes {
		n = cloneNote(n)
		if keep != nil {
			keep(&n)
		}
		s.notes[n.ID] = n
	}
	s.tags = make(map[uuid.UUID]models.Tag, len(tags))
	for _, t := range tags {
		s.tags[t.ID] = t
	}
}

// Notes returns the list pinned first, then most recently edited.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, cloneNote(n))
	}
	s.mu.RUnlock()
	SortNotes(out)
	return out
}

// SortNotes orders notes pinned first, then by edited timestamp descending.
func SortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		if notes[i].EditedTimestamp != notes[j].EditedTimestamp {
			return notes[i].EditedTimestamp > notes[j].EditedTimestamp
		}
		return notes[i].ID.String() < notes[j].ID.String()
	})
}

func (s *Store) Note(id uuid.UUID) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return cloneNote(n), ok
}

func (s *Store) UpsertNote(n models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = cloneNote(n)
}

// UpdateNote applies fn to the stored note. It reports false when the note
// is not in the list.
func (s *Store) UpdateNote(id uuid.UUID, fn func(*models.Note)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return false
	}
	fn(&n)
	s.notes[id] = n
	return true
}

// RemoveNote drops the note with its content, sync state and failed marker.
func (s *Store) RemoveNote(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, inList := s.notes[id]
	_, open := s.contents[id]
	delete(s.notes, id)
	delete(s.contents, id)
	delete(s.syncs, id)
	delete(s.failed, id)
	return inList || open
}

func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	out := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) SetContent(c ContentView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[c.NoteID] = c
}

// SetContentIfActive stores c only while its note is the active note.
func (s *Store) SetContentIfActive(c ContentView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.NoteID == uuid.Nil || s.activeNote != c.NoteID {
		return false
	}
	s.contents[c.NoteID] = c
	return true
}

func (s *Store) Content(id uuid.UUID) (ContentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[id]
	return c, ok
}

// UpdateContent applies fn to an existing content view.
func (s *Store) UpdateContent(id uuid.UUID, fn func(*ContentView)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return false
	}
	fn(&c)
	s.contents[id] = c
	return true
}

func (s *Store) RemoveContent(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contents, id)
	delete(s.syncs, id)
}

// SyncState returns the note's sync state; notes never edited are synced.
func (s *Store) SyncState(id uuid.UUID) models.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.syncs[id]
	if !ok {
		return models.Synced()
	}
	return st
}

func (s *Store) SetSynced(id uuid.UUID, t models.Track, synced bool) models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.syncs[id]
	if !ok {
		st = models.Synced()
	}
	st = st.With(t, synced)
	s.syncs[id] = st
	return st
}

func (s *Store) MarkFailed(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = struct{}{}
}

func (s *Store) ClearFailed(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failed, id)
}

func (s *Store) IsFailed(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.failed[id]
	return ok
}

// Failed lists every document currently in the failed set.
func (s *Store) Failed() []uuid.UUID {
	s.mu.RLock()
	out := make([]uuid.UUID, 0, len(s.failed))
	for id := range s.failed {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
