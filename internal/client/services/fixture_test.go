package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/codec"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned remote data. Methods not overridden panic through
// the embedded nil interface, which flags unexpected calls.
type fakeAPI struct {
	client.API

	mu       sync.Mutex
	calls    map[string]int
	notes    []models.RemoteNote
	tags     []models.RemoteTag
	contents map[uuid.UUID]models.RemoteNoteContent
	convs    []models.RemoteConversation
	messages func(conv uuid.UUID, before int64) []models.RemoteChatMessage
	userKeys map[string]models.UserKey

	// gate, when set, blocks Notes, NoteContent and Messages until closed.
	gate    chan struct{}
	started chan string

	sendErr error
	sent    []client.SendMessageRequest
	added   []client.AddParticipantRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:    make(map[string]int),
		contents: make(map[uuid.UUID]models.RemoteNoteContent),
		userKeys: make(map[string]models.UserKey),
		messages: func(uuid.UUID, int64) []models.RemoteChatMessage { return nil },
	}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- name
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Notes(context.Context) ([]models.RemoteNote, error) {
	f.hit("notes")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteNote(nil), f.notes...), nil
}

func (f *fakeAPI) NoteTags(context.Context) ([]models.RemoteTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteTag(nil), f.tags...), nil
}

func (f *fakeAPI) NoteContent(_ context.Context, id uuid.UUID) (models.RemoteNoteContent, error) {
	f.hit("content")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents[id], nil
}

func (f *fakeAPI) CreateNote(context.Context, client.CreateNoteRequest) error {
	f.hit("create")
	return nil
}

func (f *fakeAPI) DeleteNote(context.Context, uuid.UUID) error {
	f.hit("delete")
	return nil
}

func (f *fakeAPI) SetNotePinned(context.Context, uuid.UUID, bool) error {
	f.hit("pin")
	return nil
}

func (f *fakeAPI) UserPublicKey(_ context.Context, email string) (models.UserKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userKeys[email], nil
}

func (f *fakeAPI) AddNoteParticipant(_ context.Context, req client.AddParticipantRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, req)
	return nil
}

func (f *fakeAPI) RemoveNoteParticipant(context.Context, uuid.UUID, uuid.UUID) error {
	f.hit("participant remove")
	return nil
}

func (f *fakeAPI) Conversations(context.Context) ([]models.RemoteConversation, error) {
	f.hit("conversations")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteConversation(nil), f.convs...), nil
}

func (f *fakeAPI) Messages(_ context.Context, conv uuid.UUID, before int64) ([]models.RemoteChatMessage, error) {
	f.hit("messages")
	return f.messages(conv, before), nil
}

func (f *fakeAPI) SendMessage(_ context.Context, req client.SendMessageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return f.sendErr
}

type fixture struct {
	me    *keys.Identity
	keys  *keys.Resolver
	api   *fakeAPI
	store *state.Store
	cache *cache.MemoryRepository
	bus   *bus.Bus
	sig   <-chan bus.Signal
}

func newIdentity(t *testing.T) *keys.Identity {
	t.Helper()
	priv, _, err := cryptox.NewX25519KeyPair()
	require.NoError(t, err)
	master := make([]byte, 32)
	master[31] = 1
	return keys.NewIdentity(uuid.New(), priv, master)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	me := newIdentity(t)
	b := bus.New()
	sig, cancel := b.Subscribe(256)
	t.Cleanup(cancel)
	return &fixture{
		me:    me,
		keys:  keys.NewResolver(me),
		api:   newFakeAPI(),
		store: state.NewStore(),
		cache: cache.NewMemoryRepository(),
		bus:   b,
		sig:   sig,
	}
}

func (f *fixture) deps() Deps {
	return Deps{API: f.api, Cache: f.cache, Keys: f.keys, Store: f.store, Bus: f.bus}
}

// participant wraps key for the fixture's own user.
func (f *fixture) participant(t *testing.T, key keys.ContentKey) models.Participant {
	t.Helper()
	meta, err := f.keys.WrapForSelf(key)
	require.NoError(t, err)
	return models.Participant{UserID: f.me.UserID, Metadata: meta, IsOwner: true, Permissions: true}
}

func encrypt(t *testing.T, s string, key keys.ContentKey) string {
	t.Helper()
	ct, err := codec.Encrypt(s, key)
	require.NoError(t, err)
	return ct
}

// addNote registers a readable note with the fake remote.
func (f *fixture) addNote(t *testing.T, title, content string, edited int64) (uuid.UUID, keys.ContentKey) {
	t.Helper()
	key := keys.GenerateContentKey()
	id := uuid.New()
	f.api.notes = append(f.api.notes, models.RemoteNote{
		ID:              id,
		OwnerID:         f.me.UserID,
		Type:            models.NoteTypeText,
		Title:           encrypt(t, title, key),
		Preview:         encrypt(t, codec.DerivePreview(content, models.NoteTypeText), key),
		Participants:    []models.Participant{f.participant(t, key)},
		EditedTimestamp: edited,
	})
	f.api.contents[id] = models.RemoteNoteContent{
		Type:            models.NoteTypeText,
		Content:         encrypt(t, content, key),
		Preview:         encrypt(t, codec.DerivePreview(content, models.NoteTypeText), key),
		EditorID:        f.me.UserID,
		EditedTimestamp: edited,
	}
	return id, key
}

// drain returns every signal published so far.
func (f *fixture) drain() []bus.Signal {
	var out []bus.Signal
	for {
		select {
		case s := <-f.sig:
			out = append(out, s)
		default:
			return out
		}
	}
}

func decryptWith(t *testing.T, ct string, key keys.ContentKey) string {
	t.Helper()
	res := codec.Decrypt(ct, key)
	require.NoError(t, res.Err)
	return res.Plaintext
}
