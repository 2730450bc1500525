package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) addConversation(t *testing.T, name string) (uuid.UUID, keys.ContentKey) {
	t.Helper()
	key := keys.GenerateContentKey()
	id := uuid.New()
	f.api.convs = append(f.api.convs, models.RemoteConversation{
		ID:               id,
		OwnerID:          f.me.UserID,
		Name:             encrypt(t, name, key),
		Participants:     []models.Participant{f.participant(t, key)},
		CreatedTimestamp: 1,
	})
	return id, key
}

func remoteMessage(t *testing.T, conv uuid.UUID, body string, sent int64, key keys.ContentKey) models.RemoteChatMessage {
	t.Helper()
	return models.RemoteChatMessage{
		ID:             uuid.New(),
		ConversationID: conv,
		SenderID:       uuid.New(),
		Message:        encrypt(t, body, key),
		SentTimestamp:  sent,
	}
}

func TestConversations_DecryptsAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.addConversation(t, "Team")

	res, err := NewChatService(f.deps()).Conversations(ctx, false)
	require.NoError(t, err)
	assert.False(t, res.Cache)
	require.Len(t, res.Conversations, 1)
	assert.Equal(t, id, res.Conversations[0].ID)
	assert.Equal(t, "Team", res.Conversations[0].Name)

	cached, ok, err := cache.GetJSON[[]models.Conversation](ctx, f.cache, cache.DomainChats, cache.ConversationsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Team", cached[0].Name)
}

func TestRefreshMessages_DropsUndecryptableAndDedupes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")
	wrong := keys.GenerateContentKey()

	var page []models.RemoteChatMessage
	for i := int64(1); i <= 40; i++ {
		k := key
		if i == 7 || i == 23 {
			k = wrong
		}
		page = append(page, remoteMessage(t, conv, "msg", i*1000, k))
	}
	// the server repeats a message across the page boundary
	page = append(page, page[10])
	rand.Shuffle(len(page), func(i, j int) { page[i], page[j] = page[j], page[i] })

	var cursor int64
	f.api.messages = func(_ uuid.UUID, before int64) []models.RemoteChatMessage {
		cursor = before
		return page
	}

	svc := NewChatService(f.deps())
	f.store.SetActiveConversation(conv)
	res, err := svc.Messages(ctx, conv, false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Greater(t, cursor, time.Now().UnixMilli())

	require.Len(t, res.Messages, 38)
	for i := 1; i < len(res.Messages); i++ {
		assert.Greater(t, res.Messages[i-1].SentTimestamp, res.Messages[i].SentTimestamp)
	}
	for _, m := range res.Messages {
		assert.NotEqual(t, int64(7000), m.SentTimestamp)
		assert.NotEqual(t, int64(23000), m.SentTimestamp)
	}
	assert.Len(t, f.store.Messages(conv), 38)

	cached, ok, err := cache.GetJSON[[]models.ChatMessage](ctx, f.cache, cache.DomainChats, cache.ChatMessagesKey(conv))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached, 38)
}

func TestRefreshMessages_InactiveConversationNotApplied(t *testing.T) {
	f := newFixture(t)
	conv, key := f.addConversation(t, "c")
	f.api.messages = func(uuid.UUID, int64) []models.RemoteChatMessage {
		return []models.RemoteChatMessage{remoteMessage(t, conv, "hi", 1, key)}
	}

	res, err := NewChatService(f.deps()).RefreshMessages(context.Background(), conv)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Len(t, res.Messages, 1)
	assert.False(t, f.store.HasMessages(conv))
}

func TestOlderMessages_GuardAndExhaustion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")

	first := []models.RemoteChatMessage{
		remoteMessage(t, conv, "new", 5000, key),
		remoteMessage(t, conv, "newer", 6000, key),
	}
	older := []models.RemoteChatMessage{
		remoteMessage(t, conv, "old", 1000, key),
		remoteMessage(t, conv, "older", 500, key),
	}
	f.api.messages = func(_ uuid.UUID, before int64) []models.RemoteChatMessage {
		switch {
		case before > 6000:
			return first
		case before == 5000:
			return older
		default:
			return nil
		}
	}

	svc := NewChatService(f.deps())
	f.store.SetActiveConversation(conv)
	_, err := svc.RefreshMessages(ctx, conv)
	require.NoError(t, err)

	res, err := svc.OlderMessages(ctx, conv)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Exhausted)
	assert.Len(t, res.Messages, 2)
	msgs := f.store.Messages(conv)
	require.Len(t, msgs, 4)
	assert.Equal(t, int64(500), msgs[3].SentTimestamp)

	res, err = svc.OlderMessages(ctx, conv)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)

	// same cursor again: no remote call
	res, err = svc.OlderMessages(ctx, conv)
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	assert.Equal(t, 3, f.api.count("messages"))
}

func TestSend_FailureKeepsMessageAndMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")
	svc := NewChatService(f.deps())
	_, err := svc.RefreshConversations(ctx)
	require.NoError(t, err)
	f.drain()

	f.api.sendErr = errors.New("boom")
	m, err := svc.Send(ctx, conv, "hello", nil)
	require.Error(t, err)
	assert.Equal(t, "hello", m.Body)

	msgs := f.store.Messages(conv)
	require.Len(t, msgs, 1)
	assert.Equal(t, m.ID, msgs[0].ID)
	assert.True(t, f.store.IsFailed(m.ID))

	var failed bool
	for _, s := range f.drain() {
		if sf, ok := s.(bus.SaveFailed); ok && sf.Document == m.ID {
			failed = true
		}
	}
	assert.True(t, failed)

	// the wire body is ciphertext under the conversation key
	require.Len(t, f.api.sent, 1)
	assert.NotEqual(t, "hello", f.api.sent[0].Message)
	assert.Equal(t, "hello", decryptWith(t, f.api.sent[0].Message, key))
}

func TestSend_SuccessUpdatesConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, _ := f.addConversation(t, "c")
	svc := NewChatService(f.deps())
	_, err := svc.RefreshConversations(ctx)
	require.NoError(t, err)

	m, err := svc.Send(ctx, conv, "hi there", nil)
	require.NoError(t, err)
	assert.False(t, f.store.IsFailed(m.ID))

	c, ok := f.store.Conversation(conv)
	require.True(t, ok)
	assert.Equal(t, "hi there", c.LastMessage)
	assert.Equal(t, m.ID, c.LastMessageID)
}

func TestEdit_OnlySenderMayEdit(t *testing.T) {
	f := newFixture(t)
	conv, _ := f.addConversation(t, "c")
	foreign := models.ChatMessage{ID: uuid.New(), ConversationID: conv, SenderID: uuid.New(), Body: "theirs", SentTimestamp: 1}
	f.store.SetMessages(conv, []models.ChatMessage{foreign})

	err := NewChatService(f.deps()).Edit(context.Background(), foreign.ID, "mine now")
	require.ErrorIs(t, err, common.ErrReadOnly)
	got, _ := f.store.Message(foreign.ID)
	assert.Equal(t, "theirs", got.Body)
}

func TestDecryptMessage_DropsEmptyBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")
	svc := NewChatService(f.deps())

	_, ok := svc.DecryptMessage(ctx, conv, models.RemoteChatMessage{ID: uuid.New(), Message: ""})
	assert.False(t, ok)

	m, ok := svc.DecryptMessage(ctx, conv, remoteMessage(t, conv, "pushed", 9, key))
	require.True(t, ok)
	assert.Equal(t, "pushed", m.Body)
	assert.Equal(t, conv, m.ConversationID)
}

func TestChatForget_ActiveConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")
	f.api.messages = func(uuid.UUID, int64) []models.RemoteChatMessage {
		return []models.RemoteChatMessage{remoteMessage(t, conv, "hi", 1, key)}
	}
	svc := NewChatService(f.deps())
	f.store.SetActiveConversation(conv)
	_, err := svc.Messages(ctx, conv, false)
	require.NoError(t, err)
	f.drain()

	assert.True(t, svc.Forget(ctx, conv, "deleted"))

	_, ok := f.store.Conversation(conv)
	assert.False(t, ok)
	assert.False(t, f.store.HasMessages(conv))
	v, err := f.cache.Get(ctx, cache.DomainChats, cache.ChatMessagesKey(conv))
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Contains(t, f.drain(), bus.Signal(bus.NavigateAway{Document: conv, Reason: "deleted"}))
}

func TestRefreshMessages_KeepsFailedSendAndOlderPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, key := f.addConversation(t, "c")

	first := []models.RemoteChatMessage{
		remoteMessage(t, conv, "new", 5000, key),
		remoteMessage(t, conv, "newer", 6000, key),
	}
	older := []models.RemoteChatMessage{remoteMessage(t, conv, "old", 1000, key)}
	f.api.messages = func(_ uuid.UUID, before int64) []models.RemoteChatMessage {
		switch {
		case before > 6000:
			return first
		case before == 5000:
			return older
		default:
			return nil
		}
	}

	svc := NewChatService(f.deps())
	_, err := svc.RefreshConversations(ctx)
	require.NoError(t, err)
	f.store.SetActiveConversation(conv)

	f.api.sendErr = errors.New("boom")
	m, err := svc.Send(ctx, conv, "offline", nil)
	require.Error(t, err)

	_, err = svc.RefreshMessages(ctx, conv)
	require.NoError(t, err)
	_, err = svc.OlderMessages(ctx, conv)
	require.NoError(t, err)
	require.Len(t, f.store.Messages(conv), 4)

	res, err := svc.RefreshMessages(ctx, conv)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Len(t, res.Messages, 4)

	msgs := f.store.Messages(conv)
	require.Len(t, msgs, 4)
	assert.Equal(t, m.ID, msgs[0].ID)
	assert.Equal(t, "offline", msgs[0].Body)
	assert.True(t, f.store.IsFailed(m.ID))
	assert.Equal(t, int64(1000), msgs[3].SentTimestamp)
}
