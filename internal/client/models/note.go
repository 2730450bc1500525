package models

import (
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

// NoteType classifies how note content is edited and previewed.
type NoteType string

const (
	NoteTypeText      NoteType = "text"
	NoteTypeRich      NoteType = "rich"
	NoteTypeChecklist NoteType = "checklist"
	NoteTypeMarkdown  NoteType = "md"
	NoteTypeCode      NoteType = "code"
)

// Valid reports whether t is one of the known note types.
func (t NoteType) Valid() bool {
	switch t {
	case NoteTypeText, NoteTypeRich, NoteTypeChecklist, NoteTypeMarkdown, NoteTypeCode:
		return true
	}
	return false
}

// ParseNoteType validates s as a NoteType.
func ParseNoteType(s string) (NoteType, error) {
	t := NoteType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidNoteType, s)
	}
	return t, nil
}

// Tag is a user-level label. Its name is encrypted with the user's master
// key, not with any document key.
type Tag struct {
	ID              uuid.UUID `json:"uuid"`
	Name            string    `json:"name"`
	Favorite        bool      `json:"favorite"`
	EditedTimestamp int64     `json:"editedTimestamp"`
}

// Note is a decrypted note list entry.
type Note struct {
	ID               uuid.UUID     `json:"uuid"`
	OwnerID          uuid.UUID     `json:"ownerId"`
	Type             NoteType      `json:"type"`
	Title            string        `json:"title"`
	Preview          string        `json:"preview"`
	Pinned           bool          `json:"pinned"`
	Favorite         bool          `json:"favorite"`
	Trash            bool          `json:"trash"`
	Archive          bool          `json:"archive"`
	Tags             []uuid.UUID   `json:"tags"`
	Participants     []Participant `json:"participants"`
	CreatedTimestamp int64         `json:"createdTimestamp"`
	EditedTimestamp  int64         `json:"editedTimestamp"`
}

// CanWrite reports whether userID may edit the note.
func (n Note) CanWrite(userID uuid.UUID) bool {
	p, ok := FindParticipant(n.Participants, userID)
	return ok && (p.IsOwner || p.Permissions)
}

// HasTag reports whether tag is attached to the note.
func (n Note) HasTag(tag uuid.UUID) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NoteContent is the decrypted body of a note.
type NoteContent struct {
	NoteID          uuid.UUID `json:"uuid"`
	Type            NoteType  `json:"type"`
	Content         string    `json:"content"`
	Preview         string    `json:"preview"`
	EditorID        uuid.UUID `json:"editorId"`
	EditedTimestamp int64     `json:"editedTimestamp"`
}

// RemoteTag is the wire form of Tag; Name is ciphertext.
type RemoteTag struct {
	ID              uuid.UUID `json:"uuid"`
	Name            string    `json:"name"`
	Favorite        bool      `json:"favorite"`
	EditedTimestamp int64     `json:"editedTimestamp"`
}

// RemoteNote is the wire form of Note; Title and Preview are ciphertext.
type RemoteNote struct {
	ID               uuid.UUID     `json:"uuid"`
	OwnerID          uuid.UUID     `json:"ownerId"`
	Type             NoteType      `json:"type"`
	Title            string        `json:"title"`
	Preview          string        `json:"preview"`
	Pinned           bool          `json:"pinned"`
	Favorite         bool          `json:"favorite"`
	Trash            bool          `json:"trash"`
	Archive          bool          `json:"archive"`
	Tags             []RemoteTag   `json:"tags"`
	Participants     []Participant `json:"participants"`
	CreatedTimestamp int64         `json:"createdTimestamp"`
	EditedTimestamp  int64         `json:"editedTimestamp"`
}

// RemoteNoteContent is the wire form of NoteContent; Content and Preview are ciphertext.
type RemoteNoteContent struct {
	Type            NoteType  `json:"type"`
	Content         string    `json:"content"`
	Preview         string    `json:"preview"`
	EditorID        uuid.UUID `json:"editorId"`
	EditedTimestamp int64     `json:"editedTimestamp"`
}

// UserKey is a contact's public key as returned by the key directory.
type UserKey struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	PublicKey string    `json:"publicKey"`
}
