package client

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
)

// API is the remote surface used by the sync engine. Every content-bearing
// field is ciphertext; the client never sends plaintext.
type API interface {
	Notes(ctx context.Context) ([]models.RemoteNote, error)
	NoteTags(ctx context.Context) ([]models.RemoteTag, error)
	NoteContent(ctx context.Context, id uuid.UUID) (models.RemoteNoteContent, error)
	CreateNote(ctx context.Context, req CreateNoteRequest) error
	EditNoteContent(ctx context.Context, req EditNoteContentRequest) error
	EditNoteTitle(ctx context.Context, id uuid.UUID, title string) error
	ChangeNoteType(ctx context.Context, req EditNoteContentRequest) error
	SetNotePinned(ctx context.Context, id uuid.UUID, pinned bool) error
	SetNoteFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	TrashNote(ctx context.Context, id uuid.UUID) error
	ArchiveNote(ctx context.Context, id uuid.UUID) error
	RestoreNote(ctx context.Context, id uuid.UUID) error
	DeleteNote(ctx context.Context, id uuid.UUID) error
	AddNoteTag(ctx context.Context, note, tag uuid.UUID) error
	RemoveNoteTag(ctx context.Context, note, tag uuid.UUID) error
	AddNoteParticipant(ctx context.Context, req AddParticipantRequest) error
	RemoveNoteParticipant(ctx context.Context, note, user uuid.UUID) error
	SetNoteParticipantPermissions(ctx context.Context, note, user uuid.UUID, write bool) error
	UserPublicKey(ctx context.Context, email string) (models.UserKey, error)

	Conversations(ctx context.Context) ([]models.RemoteConversation, error)
	// Messages returns the page of messages sent strictly before the
	// timestamp cursor, in any order.
	Messages(ctx context.Context, conversation uuid.UUID, before int64) ([]models.RemoteChatMessage, error)
	SendMessage(ctx context.Context, req SendMessageRequest) error
	EditMessage(ctx context.Context, conversation, id uuid.UUID, message string) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	DisableMessageEmbed(ctx context.Context, id uuid.UUID) error
	Typing(ctx context.Context, conversation uuid.UUID, typing bool) error
	LastActive(ctx context.Context, conversation uuid.UUID) ([]models.OnlineStatus, error)
}

type CreateNoteRequest struct {
	ID       uuid.UUID `json:"uuid"`
	Title    string    `json:"title"`
	Metadata string    `json:"metadata"`
}

type EditNoteContentRequest struct {
	ID      uuid.UUID       `json:"uuid"`
	Type    models.NoteType `json:"type"`
	Content string          `json:"content"`
	Preview string          `json:"preview"`
}

type AddParticipantRequest struct {
	Note             uuid.UUID `json:"uuid"`
	ContactID        uuid.UUID `json:"contactUUID"`
	Metadata         string    `json:"metadata"`
	PermissionsWrite bool      `json:"permissionsWrite"`
}

type SendMessageRequest struct {
	Conversation uuid.UUID  `json:"conversation"`
	ID           uuid.UUID  `json:"uuid"`
	Message      string     `json:"message"`
	ReplyTo      *uuid.UUID `json:"replyTo,omitempty"`
}
