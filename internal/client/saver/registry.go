package saver

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
)

type track struct {
	pending   string
	confirmed string
	dirty     bool
	state     models.SaveState
}

// document is the save-side record of one open note.
type document struct {
	id uuid.UUID

	// lock is held for the whole commit, including the remote write.
	lock sync.Mutex

	mu           sync.Mutex
	typ          models.NoteType
	participants []models.Participant
	tracks       [2]track
	timer        *time.Timer
}

func newDocument(n models.Note, content string) *document {
	d := &document{id: n.ID, typ: n.Type, participants: n.Participants}
	d.tracks[models.TrackTitle] = track{pending: n.Title, confirmed: n.Title}
	d.tracks[models.TrackContent] = track{pending: content, confirmed: content}
	return d
}

func (d *document) snapshot(t models.Track) track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracks[t]
}

// Registry holds the documents opened for editing, keyed by note ID.
// Entries live from Open until Close or Discard.
type Registry struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*document
}

func NewRegistry() *Registry {
	return &Registry{docs: make(map[uuid.UUID]*document)}
}

// open returns the existing record for n or registers a new one.
func (r *Registry) open(n models.Note, content string) (*document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[n.ID]; ok {
		return d, false
	}
	d := newDocument(n, content)
	r.docs[n.ID] = d
	return d, true
}

func (r *Registry) get(id uuid.UUID) (*document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	return d, ok
}

func (r *Registry) release(id uuid.UUID) (*document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	delete(r.docs, id)
	return d, ok
}

func (r *Registry) ids() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.docs))
	for id := range r.docs {
		out = append(out, id)
	}
	return out
}

// Len reports the number of open documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}
