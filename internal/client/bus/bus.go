// Package bus carries typed signals from the sync engine to the
// presentation layer. Publishing never blocks: a subscriber that falls
// behind its buffer loses signals rather than stalling a save or the
// socket reader.
package bus

import (
	"sync"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
)

// Signal is the closed set of notifications below.
type Signal interface {
	signal()
}

type (
	// ContentChanged reports new note content in the store.
	ContentChanged struct{ Note uuid.UUID }
	// TitleChanged reports a new note title in the store.
	TitleChanged struct{ Note uuid.UUID }
	// NotesListChanged reports a change to the notes list or tags.
	NotesListChanged struct{}
	// NavigateAway asks the UI to leave a document that no longer exists
	// or is no longer accessible.
	NavigateAway struct {
		Document uuid.UUID
		Reason   string
	}
	// SaveFailed reports a commit that did not reach the server. The
	// optimistic value is kept.
	SaveFailed struct {
		Document uuid.UUID
		Track    models.Track
		Err      error
	}
	// SyncStateChanged reports a track moving between save states.
	SyncStateChanged struct {
		Note  uuid.UUID
		Track models.Track
		State models.SaveState
	}
	// MessagesChanged reports a change to a conversation's loaded messages.
	MessagesChanged struct{ Conversation uuid.UUID }
	// ConversationsChanged reports a change to the conversation list.
	ConversationsChanged struct{}
)

func (ContentChanged) signal()       {}
func (TitleChanged) signal()         {}
func (NotesListChanged) signal()     {}
func (NavigateAway) signal()         {}
func (SaveFailed) signal()           {}
func (SyncStateChanged) signal()     {}
func (MessagesChanged) signal()      {}
func (ConversationsChanged) signal() {}

// Publisher is what engine components depend on.
type Publisher interface {
	Publish(Signal)
}

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Signal
}

func New() *Bus {
	return &Bus{subs: make(map[int]chan Signal)}
}

// Publish delivers s to every subscriber with room in its buffer.
func (b *Bus) Publish(s Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe returns a channel of signals and a function that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Signal, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Signal, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Discard drops every signal.
type Discard struct{}

func (Discard) Publish(Signal) {}
