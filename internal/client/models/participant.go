package models

import "github.com/google/uuid"

// Participant is one user's membership in a note or conversation.
//
// Metadata holds the document content key wrapped for this user only; it can
// be unwrapped exclusively with the same user's private key.
type Participant struct {
	UserID         uuid.UUID `json:"userId"`
	Email          string    `json:"email"`
	PublicKey      string    `json:"publicKey"`
	Metadata       string    `json:"metadata"`
	IsOwner        bool      `json:"isOwner"`
	Permissions    bool      `json:"permissionsWrite"`
	AddedTimestamp int64     `json:"addedTimestamp"`
}

// FindParticipant returns the entry for userID, if any.
func FindParticipant(ps []Participant, userID uuid.UUID) (Participant, bool) {
	for _, p := range ps {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// UpsertParticipant replaces the entry for p.UserID or appends it, keeping
// exactly one entry per user.
func UpsertParticipant(ps []Participant, p Participant) []Participant {
	out := make([]Participant, 0, len(ps)+1)
	replaced := false
	for _, existing := range ps {
		if existing.UserID == p.UserID {
			if !replaced {
				out = append(out, p)
				replaced = true
			}
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}

// RemoveParticipant drops every entry for userID.
func RemoveParticipant(ps []Participant, userID uuid.UUID) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}
