package live

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/codec"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/services"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/google/uuid"
)

type Deps struct {
	Notes  services.NoteService
	Chats  services.ChatService
	Keys   *keys.Resolver
	Store  *state.Store
	Cache  cache.Repository
	Bus    bus.Publisher
	Log    logging.Logger
	Editor services.Editor
}

type Reconciler struct {
	notes  services.NoteService
	chats  services.ChatService
	keys   *keys.Resolver
	store  *state.Store
	cache  cache.Repository
	bus    bus.Publisher
	log    logging.Logger
	editor services.Editor
}

func NewReconciler(d Deps) *Reconciler {
	r := &Reconciler{
		notes:  d.Notes,
		chats:  d.Chats,
		keys:   d.Keys,
		store:  d.Store,
		cache:  d.Cache,
		bus:    d.Bus,
		log:    d.Log,
		editor: d.Editor,
	}
	if r.bus == nil {
		r.bus = bus.Discard{}
	}
	if r.log == nil {
		r.log = logging.Nop()
	}
	if r.editor == nil {
		r.editor = direct{}
	}
	return r
}

type direct struct{}

func (direct) ApplyRemote(_ uuid.UUID, _ models.Track, _ string, apply func()) bool {
	apply()
	return true
}

func (direct) Pending(uuid.UUID, models.Track) (string, bool) { return "", false }

func (direct) Discard(uuid.UUID) {}

// Run handles events until ctx is done or the channel is closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan client.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle applies one event. Failures are logged; nothing is returned
// because a bad event must not stop the stream.
func (r *Reconciler) Handle(ctx context.Context, ev client.Event) {
	var err error
	switch e := ev.(type) {
	case client.NoteNew:
		_, err = r.notes.RefreshNotes(ctx)
	case client.NoteContentEdited:
		err = r.noteContentEdited(ctx, e)
	case client.NoteTitleEdited:
		err = r.noteTitleEdited(ctx, e)
	case client.NoteDeleted:
		if r.knownNote(ctx, e.Note, ev) {
			r.notes.Forget(ctx, e.Note, "deleted")
		}
	case client.NoteArchived:
		r.updateNote(ctx, e.Note, ev, func(n *models.Note) { n.Archive = true })
	case client.NoteRestored:
		r.updateNote(ctx, e.Note, ev, func(n *models.Note) { n.Trash, n.Archive = false, false })
	case client.NoteParticipantNew:
		err = r.noteParticipantNew(ctx, e)
	case client.NoteParticipantRemoved:
		if e.UserID == r.keys.UserID() {
			if r.knownNote(ctx, e.Note, ev) {
				r.notes.Forget(ctx, e.Note, "removed")
			}
			break
		}
		r.updateNote(ctx, e.Note, ev, func(n *models.Note) {
			n.Participants = models.RemoveParticipant(n.Participants, e.UserID)
		})
	case client.NoteParticipantPermissions:
		r.updateNote(ctx, e.Note, ev, func(n *models.Note) {
			if p, ok := models.FindParticipant(n.Participants, e.UserID); ok {
				p.Permissions = e.PermissionsWrite
				n.Participants = models.UpsertParticipant(n.Participants, p)
			}
		})
	case client.ChatMessageNew:
		r.chatMessageNew(ctx, e)
	case client.ChatMessageEdited:
		r.chatMessageEdited(ctx, e)
	case client.ChatMessageDeleted:
		if conv, ok := r.store.RemoveMessage(e.ID); ok {
			r.messagesChanged(ctx, conv)
		}
	case client.ChatMessageEmbedDisabled:
		if conv, ok := r.store.UpdateMessage(e.ID, func(m *models.ChatMessage) { m.EmbedDisabled = true }); ok {
			r.messagesChanged(ctx, conv)
		}
	case client.ChatConversationParticipantLeft:
		r.participantLeft(ctx, e)
	case client.ChatConversationDeleted:
		if _, ok := r.store.Conversation(e.Conversation); ok {
			r.chats.Forget(ctx, e.Conversation, "deleted")
		}
	default:
		r.log.Debug(ctx, "event ignored", "event", ev.EventName())
	}
	if err != nil {
		r.log.Warn(ctx, "event not applied", "event", ev.EventName(), "error", err)
	}
}

func (r *Reconciler) knownNote(ctx context.Context, id uuid.UUID, ev client.Event) bool {
	if _, ok := r.store.Note(id); ok {
		return true
	}
	r.log.Debug(ctx, "event for unknown note", "event", ev.EventName(), "note", id)
	return false
}

func (r *Reconciler) updateNote(ctx context.Context, id uuid.UUID, ev client.Event, fn func(*models.Note)) {
	if !r.knownNote(ctx, id, ev) {
		return
	}
	if r.store.UpdateNote(id, fn) {
		r.bus.Publish(bus.NotesListChanged{})
	}
}

func (r *Reconciler) noteContentEdited(ctx context.Context, e client.NoteContentEdited) error {
	n, ok := r.store.Note(e.Note)
	if !ok {
		r.log.Debug(ctx, "event for unknown note", "event", e.EventName(), "note", e.Note)
		return nil
	}
	key, err := r.keys.ContentKey(n.Participants)
	if err != nil {
		return err
	}
	res := codec.Decrypt(e.Content, key)
	if res.Failed() {
		return fmt.Errorf("note %s: %w", e.Note, res.Err)
	}
	content := res.Plaintext
	preview := codec.DerivePreview(content, e.Type)

	// list entries follow every edit, including our own
	r.store.UpdateNote(e.Note, func(n *models.Note) {
		n.Type = e.Type
		n.Preview = preview
		n.EditedTimestamp = e.EditedTimestamp
	})
	r.bus.Publish(bus.NotesListChanged{})

	if e.EditorID == r.keys.UserID() {
		r.log.Debug(ctx, "own content edit echo", "note", e.Note)
		return nil
	}

	_, loaded := r.store.Content(e.Note)
	nc := models.NoteContent{
		NoteID:          e.Note,
		Type:            e.Type,
		Content:         content,
		Preview:         preview,
		EditorID:        e.EditorID,
		EditedTimestamp: e.EditedTimestamp,
	}
	applied := r.editor.ApplyRemote(e.Note, models.TrackContent, content, func() {
		if loaded {
			r.store.SetContent(state.ContentView{NoteContent: nc})
			r.store.SetSynced(e.Note, models.TrackContent, true)
		}
		if err := cache.SetJSON(ctx, r.cache, cache.DomainNotes, cache.NoteContentKey(e.Note), nc); err != nil {
			r.log.Warn(ctx, "content cache write failed", "note", e.Note, "error", err)
		}
	})
	if !applied {
		r.log.Debug(ctx, "remote content held back by local edit", "note", e.Note)
		return nil
	}
	if loaded {
		r.bus.Publish(bus.ContentChanged{Note: e.Note})
	}
	return nil
}

func (r *Reconciler) noteTitleEdited(ctx context.Context, e client.NoteTitleEdited) error {
	n, ok := r.store.Note(e.Note)
	if !ok {
		r.log.Debug(ctx, "event for unknown note", "event", e.EventName(), "note", e.Note)
		return nil
	}
	if e.EditorID == r.keys.UserID() {
		return nil
	}
	key, err := r.keys.ContentKey(n.Participants)
	if err != nil {
		return err
	}
	res := codec.Decrypt(e.Title, key)
	if res.Failed() {
		return fmt.Errorf("note %s: %w", e.Note, res.Err)
	}

	applied := r.editor.ApplyRemote(e.Note, models.TrackTitle, res.Plaintext, func() {
		r.store.UpdateNote(e.Note, func(n *models.Note) { n.Title = res.Plaintext })
		r.store.SetSynced(e.Note, models.TrackTitle, true)
	})
	if applied {
		r.bus.Publish(bus.TitleChanged{Note: e.Note})
		r.bus.Publish(bus.NotesListChanged{})
	}
	return nil
}

func (r *Reconciler) noteParticipantNew(ctx context.Context, e client.NoteParticipantNew) error {
	if _, ok := r.store.Note(e.Note); !ok {
		if e.Participant.UserID == r.keys.UserID() {
			// shared with us: the note is not listed yet
			_, err := r.notes.RefreshNotes(ctx)
			return err
		}
		r.log.Debug(ctx, "event for unknown note", "event", e.EventName(), "note", e.Note)
		return nil
	}
	if r.store.UpdateNote(e.Note, func(n *models.Note) {
		n.Participants = models.UpsertParticipant(n.Participants, e.Participant)
	}) {
		r.bus.Publish(bus.NotesListChanged{})
	}
	return nil
}

func (r *Reconciler) chatMessageNew(ctx context.Context, e client.ChatMessageNew) {
	if _, ok := r.store.Conversation(e.Conversation); !ok {
		r.log.Debug(ctx, "event for unknown conversation", "conversation", e.Conversation)
		return
	}
	m, ok := r.chats.DecryptMessage(ctx, e.Conversation, models.RemoteChatMessage{
		ID:             e.ID,
		ConversationID: e.Conversation,
		SenderID:       e.SenderID,
		SenderEmail:    e.SenderEmail,
		Message:        e.Message,
		ReplyTo:        e.ReplyTo,
		SentTimestamp:  e.SentTimestamp,
	})
	if !ok {
		r.log.Warn(ctx, "undecryptable message dropped", "conversation", e.Conversation, "message", e.ID)
		return
	}

	r.store.UpdateConversation(e.Conversation, func(c *models.Conversation) {
		if m.SentTimestamp < c.LastMessageTimestamp {
			return
		}
		c.LastMessage = m.Body
		c.LastMessageID = m.ID
		c.LastMessageSender = m.SenderID
		c.LastMessageTimestamp = m.SentTimestamp
	})
	r.persistConversations(ctx)
	r.bus.Publish(bus.ConversationsChanged{})

	if m.SenderID == r.keys.UserID() {
		if _, ok := r.store.Message(m.ID); ok {
			r.store.ClearFailed(m.ID)
			return
		}
	}
	if r.store.HasMessages(e.Conversation) {
		r.store.AddMessages(e.Conversation, m)
		r.messagesChanged(ctx, e.Conversation)
	}
}

func (r *Reconciler) chatMessageEdited(ctx context.Context, e client.ChatMessageEdited) {
	existing, ok := r.store.Message(e.ID)
	if !ok {
		r.log.Debug(ctx, "edit for unknown message", "message", e.ID)
		return
	}
	if existing.SenderID == r.keys.UserID() {
		return
	}
	m, ok := r.chats.DecryptMessage(ctx, e.Conversation, models.RemoteChatMessage{
		ID:            e.ID,
		SenderID:      existing.SenderID,
		Message:       e.Message,
		SentTimestamp: existing.SentTimestamp,
	})
	if !ok {
		r.log.Warn(ctx, "undecryptable message edit dropped", "message", e.ID)
		return
	}
	if conv, ok := r.store.UpdateMessage(e.ID, func(cur *models.ChatMessage) {
		cur.Body = m.Body
		cur.Edited = true
		cur.EditedTimestamp = e.EditedTimestamp
	}); ok {
		r.messagesChanged(ctx, conv)
	}
}

func (r *Reconciler) participantLeft(ctx context.Context, e client.ChatConversationParticipantLeft) {
	if _, ok := r.store.Conversation(e.Conversation); !ok {
		return
	}
	if e.UserID == r.keys.UserID() {
		r.chats.Forget(ctx, e.Conversation, "left")
		return
	}
	r.store.UpdateConversation(e.Conversation, func(c *models.Conversation) {
		c.Participants = models.RemoveParticipant(c.Participants, e.UserID)
	})
	r.persistConversations(ctx)
	r.bus.Publish(bus.ConversationsChanged{})
}

func (r *Reconciler) messagesChanged(ctx context.Context, conv uuid.UUID) {
	if err := cache.SetJSON(ctx, r.cache, cache.DomainChats, cache.ChatMessagesKey(conv), r.store.Messages(conv)); err != nil {
		r.log.Warn(ctx, "messages cache write failed", "conversation", conv, "error", err)
	}
	r.bus.Publish(bus.MessagesChanged{Conversation: conv})
}

func (r *Reconciler) persistConversations(ctx context.Context) {
	if err := cache.SetJSON(ctx, r.cache, cache.DomainChats, cache.ConversationsKey, r.store.Conversations()); err != nil {
		r.log.Warn(ctx, "conversations cache write failed", "error", err)
	}
}
