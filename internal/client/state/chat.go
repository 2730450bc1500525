package state

import (
	"slices"
	"sort"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/google/uuid"
)

func cloneConversation(c models.Conversation) models.Conversation {
	c.Participants = slices.Clone(c.Participants)
	return c
}

func (s *Store) ReplaceConversations(convs []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[uuid.UUID]models.Conversation, len(convs))
	for _, c := range convs {
		s.conversations[c.ID] = cloneConversation(c)
	}
}

// Conversations returns the list ordered by last activity, newest first.
func (s *Store) Conversations() []models.Conversation {
	s.mu.RLock()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, cloneConversation(c))
	}
	s.mu.RUnlock()
	SortConversations(out)
	return out
}

func SortConversations(convs []models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i], convs[j]
		ta, tb := max(a.LastMessageTimestamp, a.CreatedTimestamp), max(b.LastMessageTimestamp, b.CreatedTimestamp)
		if ta != tb {
			return ta > tb
		}
		return a.ID.String() < b.ID.String()
	})
}

func (s *Store) Conversation(id uuid.UUID) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return cloneConversation(c), ok
}

func (s *Store) UpdateConversation(id uuid.UUID, fn func(*models.Conversation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return false
	}
	fn(&c)
	s.conversations[id] = c
	return true
}

// RemoveConversation drops the conversation and its loaded messages.
func (s *Store) RemoveConversation(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, inList := s.conversations[id]
	_, loaded := s.messages[id]
	delete(s.conversations, id)
	delete(s.messages, id)
	return inList || loaded
}

// SetMessages replaces the loaded messages of a conversation.
func (s *Store) SetMessages(conv uuid.UUID, msgs []models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conv] = MergeMessages(msgs)
}

// ApplyNewestMessages installs page as the newest loaded messages of conv
// while conv is the active conversation. Loaded messages older than the
// page stay, and so do messages in the failed set or for which keep
// reports true; those win over the page.
func (s *Store) ApplyNewestMessages(conv uuid.UUID, page []models.ChatMessage, keep func(uuid.UUID) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv == uuid.Nil || s.activeConversation != conv {
		return false
	}

	var oldest int64
	for i, m := range page {
		if i == 0 || m.SentTimestamp < oldest {
			oldest = m.SentTimestamp
		}
	}

	var local, older []models.ChatMessage
	for _, m := range s.messages[conv] {
		_, failed := s.failed[m.ID]
		switch {
		case failed || (keep != nil && keep(m.ID)):
			local = append(local, m)
		case len(page) > 0 && m.SentTimestamp < oldest:
			older = append(older, m)
		}
	}
	s.messages[conv] = MergeMessages(local, page, older)
	return true
}

// AddMessagesIfActive is AddMessages guarded by the active conversation.
func (s *Store) AddMessagesIfActive(conv uuid.UUID, msgs ...models.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv == uuid.Nil || s.activeConversation != conv {
		return false
	}
	s.messages[conv] = MergeMessages(msgs, s.messages[conv])
	return true
}

// AddMessages merges msgs into the conversation's loaded messages. Entries
// in msgs win over stored ones with the same ID.
func (s *Store) AddMessages(conv uuid.UUID, msgs ...models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conv] = MergeMessages(msgs, s.messages[conv])
}

// Messages returns the loaded messages newest first.
func (s *Store) Messages(conv uuid.UUID) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[conv])
}

func (s *Store) HasMessages(conv uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.messages[conv]
	return ok
}

// Message finds a loaded message by ID in any conversation.
func (s *Store) Message(id uuid.UUID) (models.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == id {
				return m, true
			}
		}
	}
	return models.ChatMessage{}, false
}

// UpdateMessage applies fn to a loaded message and returns its conversation.
func (s *Store) UpdateMessage(id uuid.UUID, fn func(*models.ChatMessage)) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conv, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				fn(&msgs[i])
				return conv, true
			}
		}
	}
	return uuid.Nil, false
}

// RemoveMessage drops a loaded message and returns its conversation.
func (s *Store) RemoveMessage(id uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conv, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				s.messages[conv] = slices.Delete(slices.Clone(msgs), i, i+1)
				return conv, true
			}
		}
	}
	return uuid.Nil, false
}

// MergeMessages concatenates the batches, keeps the first occurrence of each
// message ID and returns them newest first by sent timestamp.
func MergeMessages(batches ...[]models.ChatMessage) []models.ChatMessage {
	seen := make(map[uuid.UUID]struct{})
	var out []models.ChatMessage
	for _, b := range batches {
		for _, m := range b {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SentTimestamp != out[j].SentTimestamp {
			return out[i].SentTimestamp > out[j].SentTimestamp
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if out == nil {
		out = []models.ChatMessage{}
	}
	return out
}
