package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/codec"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

// firstPageLead pushes the first page cursor past now so messages stamped
// by a server clock slightly ahead of ours are included.
const firstPageLead = 24 * time.Hour

type ConversationsResult struct {
	Conversations []models.Conversation
	Cache         bool
}

type MessagesResult struct {
	// Messages are newest first by sent timestamp, unique by ID.
	Messages []models.ChatMessage
	Cache    bool
	Applied  bool
	// Exhausted is set by OlderMessages when the server has no older page.
	Exhausted bool
}

type ChatService interface {
	Conversations(ctx context.Context, force bool) (ConversationsResult, error)
	RefreshConversations(ctx context.Context) (ConversationsResult, error)
	Messages(ctx context.Context, conv uuid.UUID, force bool) (MessagesResult, error)
	RefreshMessages(ctx context.Context, conv uuid.UUID) (MessagesResult, error)
	// OlderMessages loads the page before the oldest loaded message. A
	// second call for the same cursor while the first is pending or after
	// it succeeded does not hit the remote.
	OlderMessages(ctx context.Context, conv uuid.UUID) (MessagesResult, error)

	Send(ctx context.Context, conv uuid.UUID, body string, replyTo *uuid.UUID) (models.ChatMessage, error)
	Edit(ctx context.Context, id uuid.UUID, body string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DisableEmbed(ctx context.Context, id uuid.UUID) error
	Typing(ctx context.Context, conv uuid.UUID, typing bool) error
	Online(ctx context.Context, conv uuid.UUID) ([]models.OnlineStatus, error)

	// DecryptMessage decrypts a pushed message. ok is false for messages
	// that must be dropped.
	DecryptMessage(ctx context.Context, conv uuid.UUID, rm models.RemoteChatMessage) (models.ChatMessage, bool)
	Forget(ctx context.Context, conv uuid.UUID, reason string) bool
}

type chatService struct {
	*base

	guardMu sync.Mutex
	// olderGuard holds, per conversation, the cursor of the last older-page
	// fetch issued.
	olderGuard map[uuid.UUID]int64
	// sending holds messages whose send has not returned yet.
	sending map[uuid.UUID]struct{}
}

func NewChatService(d Deps) ChatService {
	return &chatService{
		base:       newBase(d),
		olderGuard: make(map[uuid.UUID]int64),
		sending:    make(map[uuid.UUID]struct{}),
	}
}

func (s *chatService) isSending(id uuid.UUID) bool {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	_, ok := s.sending[id]
	return ok
}

func (s *chatService) setSending(id uuid.UUID, on bool) {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	if on {
		s.sending[id] = struct{}{}
	} else {
		delete(s.sending, id)
	}
}

func (s *chatService) Conversations(ctx context.Context, force bool) (ConversationsResult, error) {
	if !force {
		convs, ok, err := cache.GetJSON[[]models.Conversation](ctx, s.Cache, cache.DomainChats, cache.ConversationsKey)
		if err != nil {
			s.Log.Warn(ctx, "conversations cache read failed", "error", err)
		}
		if ok {
			s.Store.ReplaceConversations(convs)
			s.Bus.Publish(bus.ConversationsChanged{})
			s.revalidate(ctx, "conversations", func(ctx context.Context) error {
				_, err := s.RefreshConversations(ctx)
				return err
			})
			return ConversationsResult{Conversations: s.Store.Conversations(), Cache: true}, nil
		}
	}
	return s.RefreshConversations(ctx)
}

func (s *chatService) RefreshConversations(ctx context.Context) (ConversationsResult, error) {
	v, err, _ := s.sf.Do("conversations", func() (any, error) {
		return s.fetchConversations(ctx)
	})
	if err != nil {
		s.Log.Error(ctx, "conversations refresh failed", "error", err)
		return ConversationsResult{}, err
	}
	return ConversationsResult{Conversations: v.([]models.Conversation)}, nil
}

func (s *chatService) fetchConversations(ctx context.Context) ([]models.Conversation, error) {
	remote, err := s.API.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}

	convs := make([]models.Conversation, 0, len(remote))
	for _, rc := range remote {
		c := models.Conversation{
			ID:                   rc.ID,
			OwnerID:              rc.OwnerID,
			Participants:         slices.Clone(rc.Participants),
			LastMessageSender:    rc.LastMessageSender,
			LastMessageTimestamp: rc.LastMessageTimestamp,
			LastMessageID:        rc.LastMessageID,
			CreatedTimestamp:     rc.CreatedTimestamp,
		}
		if key, err := s.Keys.ContentKey(rc.Participants); err == nil {
			c.Name = codec.DecryptString(rc.Name, key)
			c.LastMessage = codec.DecryptString(rc.LastMessage, key)
		} else {
			s.Log.Warn(ctx, "conversation key unavailable", "conversation", rc.ID, "error", err)
		}
		convs = append(convs, c)
	}
	state.SortConversations(convs)

	if err := cache.SetJSON(ctx, s.Cache, cache.DomainChats, cache.ConversationsKey, convs); err != nil {
		s.Log.Warn(ctx, "conversations cache write failed", "error", err)
	}
	s.Store.ReplaceConversations(convs)
	s.Bus.Publish(bus.ConversationsChanged{})
	return convs, nil
}

func (s *chatService) conversationKey(ctx context.Context, conv uuid.UUID) (keys.ContentKey, error) {
	c, ok := s.Store.Conversation(conv)
	if !ok {
		if _, err := s.RefreshConversations(ctx); err != nil {
			return nil, err
		}
		if c, ok = s.Store.Conversation(conv); !ok {
			return nil, fmt.Errorf("conversation %s: %w", conv, common.ErrorNotFound)
		}
	}
	return s.Keys.ContentKey(c.Participants)
}

func (s *chatService) Messages(ctx context.Context, conv uuid.UUID, force bool) (MessagesResult, error) {
	if !force {
		msgs, ok, err := cache.GetJSON[[]models.ChatMessage](ctx, s.Cache, cache.DomainChats, cache.ChatMessagesKey(conv))
		if err != nil {
			s.Log.Warn(ctx, "messages cache read failed", "conversation", conv, "error", err)
		}
		if ok {
			msgs = state.MergeMessages(msgs)
			applied := s.applyMessages(conv, msgs)
			if applied {
				msgs = s.Store.Messages(conv)
			}
			s.revalidate(ctx, "messages:"+conv.String(), func(ctx context.Context) error {
				_, err := s.RefreshMessages(ctx, conv)
				return err
			})
			return MessagesResult{Messages: msgs, Cache: true, Applied: applied}, nil
		}
	}
	return s.RefreshMessages(ctx, conv)
}

func (s *chatService) RefreshMessages(ctx context.Context, conv uuid.UUID) (MessagesResult, error) {
	v, err, _ := s.sf.Do("messages:"+conv.String(), func() (any, error) {
		msgs, err := s.fetchPage(ctx, conv, time.Now().Add(firstPageLead).UnixMilli())
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, s.Cache, cache.DomainChats, cache.ChatMessagesKey(conv), msgs); err != nil {
			s.Log.Warn(ctx, "messages cache write failed", "conversation", conv, "error", err)
		}
		return msgs, nil
	})
	if err != nil {
		s.Log.Error(ctx, "messages refresh failed", "conversation", conv, "error", err)
		return MessagesResult{}, err
	}
	msgs := v.([]models.ChatMessage)

	s.guardMu.Lock()
	delete(s.olderGuard, conv)
	s.guardMu.Unlock()

	if !s.applyMessages(conv, msgs) {
		return MessagesResult{Messages: msgs}, nil
	}
	return MessagesResult{Messages: s.Store.Messages(conv), Applied: true}, nil
}

// fetchPage fetches and decrypts the messages sent before cursor. Messages
// that fail to decrypt, or decrypt to nothing, are left out.
func (s *chatService) fetchPage(ctx context.Context, conv uuid.UUID, cursor int64) ([]models.ChatMessage, error) {
	key, err := s.conversationKey(ctx, conv)
	if err != nil {
		return nil, err
	}
	remote, err := s.API.Messages(ctx, conv, cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	out := make([]models.ChatMessage, 0, len(remote))
	dropped := 0
	for _, rm := range remote {
		m, ok := decryptMessage(conv, rm, key)
		if !ok {
			dropped++
			continue
		}
		out = append(out, m)
	}
	if dropped > 0 {
		s.Log.Warn(ctx, "undecryptable messages dropped", "conversation", conv, "count", dropped)
	}
	return state.MergeMessages(out), nil
}

func decryptMessage(conv uuid.UUID, rm models.RemoteChatMessage, key keys.ContentKey) (models.ChatMessage, bool) {
	body := codec.Decrypt(rm.Message, key)
	if body.Failed() || body.Empty() {
		return models.ChatMessage{}, false
	}
	m := models.ChatMessage{
		ID:              rm.ID,
		ConversationID:  conv,
		SenderID:        rm.SenderID,
		SenderEmail:     rm.SenderEmail,
		Body:            body.Plaintext,
		EmbedDisabled:   rm.EmbedDisabled,
		Edited:          rm.Edited,
		EditedTimestamp: rm.EditedTimestamp,
		SentTimestamp:   rm.SentTimestamp,
	}
	if rm.ReplyTo != nil && rm.ReplyTo.ID != uuid.Nil {
		m.ReplyTo = &models.MessageReply{
			ID:       rm.ReplyTo.ID,
			SenderID: rm.ReplyTo.SenderID,
			Message:  codec.DecryptString(rm.ReplyTo.Message, key),
		}
	}
	return m, true
}

func (s *chatService) DecryptMessage(ctx context.Context, conv uuid.UUID, rm models.RemoteChatMessage) (models.ChatMessage, bool) {
	key, err := s.conversationKey(ctx, conv)
	if err != nil {
		s.Log.Warn(ctx, "conversation key unavailable", "conversation", conv, "error", err)
		return models.ChatMessage{}, false
	}
	return decryptMessage(conv, rm, key)
}

// applyMessages installs a first page for the active conversation, keeping
// older pages and messages that are failed or still being sent.
func (s *chatService) applyMessages(conv uuid.UUID, msgs []models.ChatMessage) bool {
	if !s.Store.ApplyNewestMessages(conv, msgs, s.isSending) {
		return false
	}
	s.Bus.Publish(bus.MessagesChanged{Conversation: conv})
	return true
}

func (s *chatService) OlderMessages(ctx context.Context, conv uuid.UUID) (MessagesResult, error) {
	loaded := s.Store.Messages(conv)
	if len(loaded) == 0 {
		return MessagesResult{Exhausted: true}, nil
	}
	cursor := loaded[len(loaded)-1].SentTimestamp

	s.guardMu.Lock()
	if s.olderGuard[conv] == cursor {
		s.guardMu.Unlock()
		return MessagesResult{}, nil
	}
	s.olderGuard[conv] = cursor
	s.guardMu.Unlock()

	page, err := s.fetchPage(ctx, conv, cursor)
	if err != nil {
		s.guardMu.Lock()
		if s.olderGuard[conv] == cursor {
			delete(s.olderGuard, conv)
		}
		s.guardMu.Unlock()
		s.Log.Error(ctx, "older messages fetch failed", "conversation", conv, "error", err)
		return MessagesResult{}, err
	}

	res := MessagesResult{Messages: page, Exhausted: len(page) == 0}
	if len(page) > 0 && s.Store.AddMessagesIfActive(conv, page...) {
		s.Bus.Publish(bus.MessagesChanged{Conversation: conv})
		res.Applied = true
	}
	return res, nil
}

func (s *chatService) persistMessages(ctx context.Context, conv uuid.UUID) {
	if !s.Store.HasMessages(conv) {
		return
	}
	if err := cache.SetJSON(ctx, s.Cache, cache.DomainChats, cache.ChatMessagesKey(conv), s.Store.Messages(conv)); err != nil {
		s.Log.Warn(ctx, "messages cache write failed", "conversation", conv, "error", err)
	}
}

// Send shows the message immediately. If the remote write fails the message
// stays visible and is added to the failed set.
func (s *chatService) Send(ctx context.Context, conv uuid.UUID, body string, replyTo *uuid.UUID) (models.ChatMessage, error) {
	key, err := s.conversationKey(ctx, conv)
	if err != nil {
		return models.ChatMessage{}, err
	}
	enc, err := codec.Encrypt(body, key)
	if err != nil {
		return models.ChatMessage{}, err
	}

	m := models.ChatMessage{
		ID:             uuid.New(),
		ConversationID: conv,
		SenderID:       s.Keys.UserID(),
		Body:           body,
		SentTimestamp:  nowMillis(),
	}
	if replyTo != nil {
		if orig, ok := s.Store.Message(*replyTo); ok {
			m.ReplyTo = &models.MessageReply{ID: orig.ID, SenderID: orig.SenderID, Message: orig.Body}
		}
	}
	s.setSending(m.ID, true)
	defer s.setSending(m.ID, false)
	s.Store.AddMessages(conv, m)
	s.Bus.Publish(bus.MessagesChanged{Conversation: conv})

	err = s.API.SendMessage(ctx, client.SendMessageRequest{Conversation: conv, ID: m.ID, Message: enc, ReplyTo: replyTo})
	if err != nil {
		s.Store.MarkFailed(m.ID)
		s.Bus.Publish(bus.SaveFailed{Document: m.ID, Err: err})
		s.Log.Error(ctx, "message send failed", "conversation", conv, "message", m.ID, "error", err)
		return m, fmt.Errorf("send: %w", err)
	}
	s.Store.ClearFailed(m.ID)
	s.Store.UpdateConversation(conv, func(c *models.Conversation) {
		c.LastMessage = body
		c.LastMessageID = m.ID
		c.LastMessageSender = m.SenderID
		c.LastMessageTimestamp = m.SentTimestamp
	})
	s.persistMessages(ctx, conv)
	s.Bus.Publish(bus.ConversationsChanged{})
	return m, nil
}

func (s *chatService) Edit(ctx context.Context, id uuid.UUID, body string) error {
	m, ok := s.Store.Message(id)
	if !ok {
		return fmt.Errorf("message %s: %w", id, common.ErrorNotFound)
	}
	if m.SenderID != s.Keys.UserID() {
		return common.ErrReadOnly
	}
	key, err := s.conversationKey(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	enc, err := codec.Encrypt(body, key)
	if err != nil {
		return err
	}

	s.Store.UpdateMessage(id, func(m *models.ChatMessage) {
		m.Body = body
		m.Edited = true
		m.EditedTimestamp = nowMillis()
	})
	s.Bus.Publish(bus.MessagesChanged{Conversation: m.ConversationID})

	if err := s.API.EditMessage(ctx, m.ConversationID, id, enc); err != nil {
		s.Store.MarkFailed(id)
		s.Bus.Publish(bus.SaveFailed{Document: id, Err: err})
		s.Log.Error(ctx, "message edit failed", "message", id, "error", err)
		return fmt.Errorf("edit: %w", err)
	}
	s.Store.ClearFailed(id)
	s.persistMessages(ctx, m.ConversationID)
	return nil
}

func (s *chatService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.API.DeleteMessage(ctx, id); err != nil {
		s.Log.Error(ctx, "message delete failed", "message", id, "error", err)
		return fmt.Errorf("delete message: %w", err)
	}
	if conv, ok := s.Store.RemoveMessage(id); ok {
		s.persistMessages(ctx, conv)
		s.Bus.Publish(bus.MessagesChanged{Conversation: conv})
	}
	return nil
}

func (s *chatService) DisableEmbed(ctx context.Context, id uuid.UUID) error {
	if err := s.API.DisableMessageEmbed(ctx, id); err != nil {
		return fmt.Errorf("disable embed: %w", err)
	}
	if conv, ok := s.Store.UpdateMessage(id, func(m *models.ChatMessage) { m.EmbedDisabled = true }); ok {
		s.persistMessages(ctx, conv)
		s.Bus.Publish(bus.MessagesChanged{Conversation: conv})
	}
	return nil
}

func (s *chatService) Typing(ctx context.Context, conv uuid.UUID, typing bool) error {
	return s.API.Typing(ctx, conv, typing)
}

func (s *chatService) Online(ctx context.Context, conv uuid.UUID) ([]models.OnlineStatus, error) {
	return s.API.LastActive(ctx, conv)
}

func (s *chatService) Forget(ctx context.Context, conv uuid.UUID, reason string) bool {
	wasActive := s.Store.IsActiveConversation(conv)
	removed := s.Store.RemoveConversation(conv)

	if err := s.Cache.Remove(ctx, cache.DomainChats, cache.ChatMessagesKey(conv)); err != nil {
		s.Log.Warn(ctx, "messages cache purge failed", "conversation", conv, "error", err)
	}
	if err := cache.SetJSON(ctx, s.Cache, cache.DomainChats, cache.ConversationsKey, s.Store.Conversations()); err != nil {
		s.Log.Warn(ctx, "conversations cache write failed", "error", err)
	}

	s.guardMu.Lock()
	delete(s.olderGuard, conv)
	s.guardMu.Unlock()

	if wasActive {
		s.Store.SetActiveConversation(uuid.Nil)
		s.Bus.Publish(bus.NavigateAway{Document: conv, Reason: reason})
	}
	s.Bus.Publish(bus.ConversationsChanged{})
	return removed
}
