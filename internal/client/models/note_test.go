package models

import (
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteType(t *testing.T) {
	for _, s := range []string{"text", "rich", "checklist", "md", "code"} {
		got, err := ParseNoteType(s)
		require.NoError(t, err)
		assert.Equal(t, NoteType(s), got)
	}

	_, err := ParseNoteType("spreadsheet")
	assert.ErrorIs(t, err, common.ErrInvalidNoteType)
}

func TestUpsertParticipant_OneEntryPerUser(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ps := []Participant{{UserID: a, Metadata: "old"}, {UserID: b}}

	ps = UpsertParticipant(ps, Participant{UserID: a, Metadata: "new"})
	require.Len(t, ps, 2)
	p, ok := FindParticipant(ps, a)
	require.True(t, ok)
	assert.Equal(t, "new", p.Metadata)

	ps = UpsertParticipant(ps, Participant{UserID: uuid.New()})
	assert.Len(t, ps, 3)

	// duplicates collapse to one entry
	dup := UpsertParticipant([]Participant{{UserID: a}, {UserID: a}}, Participant{UserID: a, Permissions: true})
	require.Len(t, dup, 1)
	assert.True(t, dup[0].Permissions)
}

func TestRemoveParticipant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ps := RemoveParticipant([]Participant{{UserID: a}, {UserID: b}}, a)
	require.Len(t, ps, 1)
	assert.Equal(t, b, ps[0].UserID)
}

func TestNote_CanWrite(t *testing.T) {
	owner, writer, reader := uuid.New(), uuid.New(), uuid.New()
	n := Note{Participants: []Participant{
		{UserID: owner, IsOwner: true},
		{UserID: writer, Permissions: true},
		{UserID: reader},
	}}

	assert.True(t, n.CanWrite(owner))
	assert.True(t, n.CanWrite(writer))
	assert.False(t, n.CanWrite(reader))
	assert.False(t, n.CanWrite(uuid.New()))
}

func TestSyncState_With(t *testing.T) {
	s := Synced().With(TrackContent, false)
	assert.True(t, s.TitleSynced)
	assert.False(t, s.ContentSynced)
	assert.False(t, s.Get(TrackContent))
	assert.True(t, s.With(TrackContent, true).Get(TrackContent))
	assert.Equal(t, "dirty", SaveStateDirty.String())
	assert.Equal(t, "title", TrackTitle.String())
}
