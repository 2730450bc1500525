package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/netx"
	"github.com/google/uuid"
)

const apiPrefix = "/v3/"

// HTTPClient implements API over JSON/HTTP.
type HTTPClient struct {
	base    *url.URL
	apiKey  string
	timeout time.Duration
	hc      *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL. Each call is
// bounded by timeout when it is positive. hc may be nil.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, hc *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http(s), got %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{base: u, apiKey: apiKey, timeout: timeout, hc: hc}, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	return u.String()
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
	if err != nil {
		return err
	}
	req.Header.Set(common.AuthHeaderName, "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return c.mapError(ctx, path, err)
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if err := statusError(resp.StatusCode); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if !env.Status {
		return fmt.Errorf("%s: %w", path, &RemoteError{Code: env.Code, Message: env.Message})
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: http %d", ErrUnavailable, code)
	}
	return nil
}

// mapError converts transport failures to sentinels. Cancellation by the
// caller is returned as is.
func (c *HTTPClient) mapError(ctx context.Context, path string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	if netx.IsUnreachable(err) {
		return fmt.Errorf("%s: %w: %v", path, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

type idBody struct {
	ID uuid.UUID `json:"uuid"`
}

func (c *HTTPClient) Notes(ctx context.Context) ([]models.RemoteNote, error) {
	var out []models.RemoteNote
	if err := c.get(ctx, "notes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) NoteTags(ctx context.Context) ([]models.RemoteTag, error) {
	var out []models.RemoteTag
	if err := c.get(ctx, "notes/tags", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) NoteContent(ctx context.Context, id uuid.UUID) (models.RemoteNoteContent, error) {
	var out models.RemoteNoteContent
	err := c.post(ctx, "notes/content", idBody{ID: id}, &out)
	return out, err
}

func (c *HTTPClient) CreateNote(ctx context.Context, req CreateNoteRequest) error {
	return c.post(ctx, "notes/create", req, nil)
}

func (c *HTTPClient) EditNoteContent(ctx context.Context, req EditNoteContentRequest) error {
	return c.post(ctx, "notes/content/edit", req, nil)
}

func (c *HTTPClient) EditNoteTitle(ctx context.Context, id uuid.UUID, title string) error {
	return c.post(ctx, "notes/title/edit", struct {
		ID    uuid.UUID `json:"uuid"`
		Title string    `json:"title"`
	}{id, title}, nil)
}

func (c *HTTPClient) ChangeNoteType(ctx context.Context, req EditNoteContentRequest) error {
	return c.post(ctx, "notes/type", req, nil)
}

type flagBody struct {
	ID    uuid.UUID `json:"uuid"`
	Value bool      `json:"value"`
}

func (c *HTTPClient) SetNotePinned(ctx context.Context, id uuid.UUID, pinned bool) error {
	return c.post(ctx, "notes/pinned", flagBody{id, pinned}, nil)
}

func (c *HTTPClient) SetNoteFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return c.post(ctx, "notes/favorite", flagBody{id, favorite}, nil)
}

func (c *HTTPClient) TrashNote(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "notes/trash", idBody{ID: id}, nil)
}

func (c *HTTPClient) ArchiveNote(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "notes/archive", idBody{ID: id}, nil)
}

func (c *HTTPClient) RestoreNote(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "notes/restore", idBody{ID: id}, nil)
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "notes/delete", idBody{ID: id}, nil)
}

type noteTagBody struct {
	Note uuid.UUID `json:"uuid"`
	Tag  uuid.UUID `json:"tag"`
}

func (c *HTTPClient) AddNoteTag(ctx context.Context, note, tag uuid.UUID) error {
	return c.post(ctx, "notes/tag/add", noteTagBody{note, tag}, nil)
}

func (c *HTTPClient) RemoveNoteTag(ctx context.Context, note, tag uuid.UUID) error {
	return c.post(ctx, "notes/tag/remove", noteTagBody{note, tag}, nil)
}

func (c *HTTPClient) AddNoteParticipant(ctx context.Context, req AddParticipantRequest) error {
	return c.post(ctx, "notes/participants/add", req, nil)
}

type participantBody struct {
	Note             uuid.UUID `json:"uuid"`
	User             uuid.UUID `json:"userId"`
	PermissionsWrite bool      `json:"permissionsWrite"`
}

func (c *HTTPClient) RemoveNoteParticipant(ctx context.Context, note, user uuid.UUID) error {
	return c.post(ctx, "notes/participants/remove", participantBody{Note: note, User: user}, nil)
}

func (c *HTTPClient) SetNoteParticipantPermissions(ctx context.Context, note, user uuid.UUID, write bool) error {
	return c.post(ctx, "notes/participants/permissions", participantBody{note, user, write}, nil)
}

func (c *HTTPClient) UserPublicKey(ctx context.Context, email string) (models.UserKey, error) {
	var out models.UserKey
	err := c.post(ctx, "user/publicKey", struct {
		Email string `json:"email"`
	}{email}, &out)
	return out, err
}

func (c *HTTPClient) Conversations(ctx context.Context) ([]models.RemoteConversation, error) {
	var out []models.RemoteConversation
	if err := c.get(ctx, "chat/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Messages(ctx context.Context, conversation uuid.UUID, before int64) ([]models.RemoteChatMessage, error) {
	var out []models.RemoteChatMessage
	err := c.post(ctx, "chat/messages", struct {
		Conversation uuid.UUID `json:"conversation"`
		Timestamp    int64     `json:"timestamp"`
	}{conversation, before}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, req SendMessageRequest) error {
	return c.post(ctx, "chat/send", req, nil)
}

func (c *HTTPClient) EditMessage(ctx context.Context, conversation, id uuid.UUID, message string) error {
	return c.post(ctx, "chat/edit", struct {
		Conversation uuid.UUID `json:"conversation"`
		ID           uuid.UUID `json:"uuid"`
		Message      string    `json:"message"`
	}{conversation, id, message}, nil)
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "chat/delete", idBody{ID: id}, nil)
}

func (c *HTTPClient) DisableMessageEmbed(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "chat/message/embed/disable", idBody{ID: id}, nil)
}

func (c *HTTPClient) Typing(ctx context.Context, conversation uuid.UUID, typing bool) error {
	typ := "up"
	if typing {
		typ = "down"
	}
	return c.post(ctx, "chat/typing", struct {
		Conversation uuid.UUID `json:"conversation"`
		Type         string    `json:"type"`
	}{conversation, typ}, nil)
}

func (c *HTTPClient) LastActive(ctx context.Context, conversation uuid.UUID) ([]models.OnlineStatus, error) {
	var out []models.OnlineStatus
	err := c.post(ctx, "chat/conversations/online", struct {
		Conversation uuid.UUID `json:"conversation"`
	}{conversation}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ API = (*HTTPClient)(nil)
