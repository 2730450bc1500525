// Package common defines shared constants and sentinel errors used across
// the client layers of GophDrive. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Document lifecycle errors.
	ErrDocumentNotOpen = errors.New("document is not open")
	ErrReadOnly        = errors.New("no write permission")
	ErrNotParticipant  = errors.New("current user is not a participant")

	// Validation errors.
	ErrInvalidUUID     = errors.New("invalid uuid")
	ErrInvalidNoteType = errors.New("invalid note type")
)
