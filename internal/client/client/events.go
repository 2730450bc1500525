package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Event is one decoded socket frame. The concrete types below form a closed
// union; switch on the type to handle them.
type Event interface {
	EventName() string
}

// Frame is the websocket wire envelope.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type NoteNew struct {
	Note uuid.UUID `json:"note" validate:"required"`
}

// NoteContentEdited carries the new content as ciphertext.
type NoteContentEdited struct {
	Note            uuid.UUID       `json:"note" validate:"required"`
	Content         string          `json:"content"`
	Type            models.NoteType `json:"type" validate:"required"`
	EditorID        uuid.UUID       `json:"editorId" validate:"required"`
	EditedTimestamp int64           `json:"editedTimestamp" validate:"gt=0"`
}

// NoteTitleEdited carries the new title as ciphertext.
type NoteTitleEdited struct {
	Note     uuid.UUID `json:"note" validate:"required"`
	Title    string    `json:"title"`
	EditorID uuid.UUID `json:"editorId"`
}

type NoteDeleted struct {
	Note uuid.UUID `json:"note" validate:"required"`
}

type NoteRestored struct {
	Note uuid.UUID `json:"note" validate:"required"`
}

type NoteArchived struct {
	Note uuid.UUID `json:"note" validate:"required"`
}

type NoteParticipantNew struct {
	Note        uuid.UUID          `json:"note" validate:"required"`
	Participant models.Participant `json:"participant"`
}

type NoteParticipantRemoved struct {
	Note   uuid.UUID `json:"note" validate:"required"`
	UserID uuid.UUID `json:"userId" validate:"required"`
}

type NoteParticipantPermissions struct {
	Note             uuid.UUID `json:"note" validate:"required"`
	UserID           uuid.UUID `json:"userId" validate:"required"`
	PermissionsWrite bool      `json:"permissionsWrite"`
}

// ChatMessageNew carries the message body as ciphertext.
type ChatMessageNew struct {
	Conversation  uuid.UUID                  `json:"conversation" validate:"required"`
	ID            uuid.UUID                  `json:"uuid" validate:"required"`
	SenderID      uuid.UUID                  `json:"senderId" validate:"required"`
	SenderEmail   string                     `json:"senderEmail"`
	Message       string                     `json:"message"`
	ReplyTo       *models.RemoteMessageReply `json:"replyTo,omitempty"`
	SentTimestamp int64                      `json:"sentTimestamp" validate:"gt=0"`
}

type ChatMessageEdited struct {
	Conversation    uuid.UUID `json:"conversation" validate:"required"`
	ID              uuid.UUID `json:"uuid" validate:"required"`
	Message         string    `json:"message"`
	EditedTimestamp int64     `json:"editedTimestamp"`
}

type ChatMessageDeleted struct {
	ID uuid.UUID `json:"uuid" validate:"required"`
}

type ChatMessageEmbedDisabled struct {
	ID uuid.UUID `json:"uuid" validate:"required"`
}

type ChatConversationParticipantLeft struct {
	Conversation uuid.UUID `json:"uuid" validate:"required"`
	UserID       uuid.UUID `json:"userId" validate:"required"`
}

type ChatConversationDeleted struct {
	Conversation uuid.UUID `json:"uuid" validate:"required"`
}

func (NoteNew) EventName() string                         { return "noteNew" }
func (NoteContentEdited) EventName() string               { return "noteContentEdited" }
func (NoteTitleEdited) EventName() string                 { return "noteTitleEdited" }
func (NoteDeleted) EventName() string                     { return "noteDeleted" }
func (NoteRestored) EventName() string                    { return "noteRestored" }
func (NoteArchived) EventName() string                    { return "noteArchived" }
func (NoteParticipantNew) EventName() string              { return "noteParticipantNew" }
func (NoteParticipantRemoved) EventName() string          { return "noteParticipantRemoved" }
func (NoteParticipantPermissions) EventName() string      { return "noteParticipantPermissions" }
func (ChatMessageNew) EventName() string                  { return "chatMessageNew" }
func (ChatMessageEdited) EventName() string               { return "chatMessageEdited" }
func (ChatMessageDeleted) EventName() string              { return "chatMessageDelete" }
func (ChatMessageEmbedDisabled) EventName() string        { return "chatMessageEmbedDisabled" }
func (ChatConversationParticipantLeft) EventName() string { return "chatConversationParticipantLeft" }
func (ChatConversationDeleted) EventName() string         { return "chatConversationDeleted" }

var decoders = map[string]func([]byte) (Event, error){
	"noteNew":                         decodeAs[NoteNew],
	"noteContentEdited":               decodeAs[NoteContentEdited],
	"noteTitleEdited":                 decodeAs[NoteTitleEdited],
	"noteDeleted":                     decodeAs[NoteDeleted],
	"noteRestored":                    decodeAs[NoteRestored],
	"noteArchived":                    decodeAs[NoteArchived],
	"noteParticipantNew":              decodeAs[NoteParticipantNew],
	"noteParticipantRemoved":          decodeAs[NoteParticipantRemoved],
	"noteParticipantPermissions":      decodeAs[NoteParticipantPermissions],
	"chatMessageNew":                  decodeAs[ChatMessageNew],
	"chatMessageEdited":               decodeAs[ChatMessageEdited],
	"chatMessageDelete":               decodeAs[ChatMessageDeleted],
	"chatMessageEmbedDisabled":        decodeAs[ChatMessageEmbedDisabled],
	"chatConversationParticipantLeft": decodeAs[ChatConversationParticipantLeft],
	"chatConversationDeleted":         decodeAs[ChatConversationDeleted],
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrUnknownEvent is returned by DecodeFrame for event names it does not handle.
var ErrUnknownEvent = errors.New("unknown event")

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := validate.Struct(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeFrame parses one websocket text frame.
func DecodeFrame(raw []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	dec, ok := decoders[f.Event]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEvent, f.Event)
	}
	ev, err := dec(f.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Event, err)
	}
	return ev, nil
}

// EncodeFrame is the inverse of DecodeFrame.
func EncodeFrame(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: ev.EventName(), Data: data})
}
