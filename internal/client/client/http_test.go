package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status bool, code string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(envelope{Status: status, Code: code, Message: code, Data: raw}))
}

func newTestClient(t *testing.T, r *mux.Router) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL, "api-key", time.Second, srv.Client())
	require.NoError(t, err)
	return c
}

func TestHTTPClient_NotesSendsBearerAndDecodesEnvelope(t *testing.T) {
	id := uuid.New()
	r := mux.NewRouter()
	r.HandleFunc("/v3/notes", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer api-key", req.Header.Get("Authorization"))
		writeEnvelope(t, w, true, "", []models.RemoteNote{{ID: id, Title: "ct", Type: models.NoteTypeText}})
	}).Methods(http.MethodGet)

	notes, err := newTestClient(t, r).Notes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)
	assert.Equal(t, "ct", notes[0].Title)
}

func TestHTTPClient_EditNoteContentPostsBody(t *testing.T) {
	id := uuid.New()
	var got EditNoteContentRequest
	r := mux.NewRouter()
	r.HandleFunc("/v3/notes/content/edit", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeEnvelope(t, w, true, "", nil)
	}).Methods(http.MethodPost)

	err := newTestClient(t, r).EditNoteContent(context.Background(), EditNoteContentRequest{
		ID: id, Type: models.NoteTypeMarkdown, Content: "c", Preview: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.NoteTypeMarkdown, got.Type)
	assert.Equal(t, "c", got.Content)
}

func TestHTTPClient_MessagesSendsCursor(t *testing.T) {
	conv := uuid.New()
	r := mux.NewRouter()
	r.HandleFunc("/v3/chat/messages", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Conversation uuid.UUID `json:"conversation"`
			Timestamp    int64     `json:"timestamp"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, conv, body.Conversation)
		assert.Equal(t, int64(1234), body.Timestamp)
		writeEnvelope(t, w, true, "", []models.RemoteChatMessage{{ID: uuid.New(), SentTimestamp: 1000}})
	}).Methods(http.MethodPost)

	msgs, err := newTestClient(t, r).Messages(context.Background(), conv, 1234)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/v3/notes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.HandleFunc("/v3/notes/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.HandleFunc("/v3/notes/content", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.HandleFunc("/v3/notes/trash", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(t, w, false, "note_not_found", nil)
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	_, err := c.Notes(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.NoteTags(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.NoteContent(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.TrashNote(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRemote)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "note_not_found", re.Code)
}

func TestHTTPClient_TimeoutIsUnavailable(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/v3/notes", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL, "k", 50*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = c.Notes(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_CallerCancelIsNotUnavailable(t *testing.T) {
	c, err := NewHTTPClient("http://127.0.0.1:1", "k", 0, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Notes(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", "k", 0, nil)
	require.Error(t, err)
	_, err = NewHTTPClient("://", "k", 0, nil)
	require.Error(t, err)
}
