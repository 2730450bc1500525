package client

import (
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame(t *testing.T) {
	events := []Event{
		NoteContentEdited{Note: uuid.New(), Content: "ct", Type: models.NoteTypeText, EditorID: uuid.New(), EditedTimestamp: 5},
		NoteTitleEdited{Note: uuid.New(), Title: "t"},
		NoteDeleted{Note: uuid.New()},
		NoteParticipantRemoved{Note: uuid.New(), UserID: uuid.New()},
		ChatMessageNew{Conversation: uuid.New(), ID: uuid.New(), SenderID: uuid.New(), Message: "m", SentTimestamp: 9},
		ChatMessageDeleted{ID: uuid.New()},
		ChatConversationDeleted{Conversation: uuid.New()},
	}
	for _, ev := range events {
		t.Run(ev.EventName(), func(t *testing.T) {
			raw, err := EncodeFrame(ev)
			require.NoError(t, err)
			got, err := DecodeFrame(raw)
			require.NoError(t, err)
			assert.Equal(t, ev, got)
		})
	}
}

func TestDecodeFrame_Rejects(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"event":"fileNew","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeFrame([]byte(`not json`))
	require.Error(t, err)

	// missing note uuid
	_, err = DecodeFrame([]byte(`{"event":"noteDeleted","data":{}}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeFrame([]byte(`{"event":"noteContentEdited","data":{"note":"` + uuid.NewString() + `","type":"text","editorId":"` + uuid.NewString() + `","editedTimestamp":0}}`))
	require.Error(t, err)
}
