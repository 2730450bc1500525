package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Domain partitions the key space so bulk cleanup in one domain cannot touch
// another.
type Domain string

const (
	DomainNotes    Domain = "notes"
	DomainChats    Domain = "chats"
	DomainMetadata Domain = "metadata"
)

const (
	NotesAndTagsKey  = "notesAndTags"
	ConversationsKey = "chatConversations"
)

const (
	noteContentPrefix  = "noteContent:"
	chatMessagesPrefix = "chatMessages:"
)

func NoteContentKey(id uuid.UUID) string {
	return noteContentPrefix + id.String()
}

func ChatMessagesKey(id uuid.UUID) string {
	return chatMessagesPrefix + id.String()
}

// ParseNoteContentKey extracts the note ID from a NoteContentKey.
func ParseNoteContentKey(key string) (uuid.UUID, bool) {
	return parseKey(key, noteContentPrefix)
}

// ParseChatMessagesKey extracts the conversation ID from a ChatMessagesKey.
func ParseChatMessagesKey(key string) (uuid.UUID, bool) {
	return parseKey(key, chatMessagesPrefix)
}

func parseKey(key, prefix string) (uuid.UUID, bool) {
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(key[len(prefix):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Repository is the cache store contract.
type Repository interface {
	// Get returns the stored value, or (nil, nil) when the key is absent.
	Get(ctx context.Context, domain Domain, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, domain Domain, key string, value []byte) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, domain Domain, keys ...string) error

	// Keys lists every key stored in domain.
	Keys(ctx context.Context, domain Domain) ([]string, error)

	// Clear removes every entry in domain.
	Clear(ctx context.Context, domain Domain) error
}

// New returns the repository for the named backend.
func New(backend string, deps Deps) (Repository, error) {
	switch backend {
	case "sqlite":
		if deps.DB == nil {
			return nil, fmt.Errorf("cache backend %q needs a database", backend)
		}
		return NewSQLiteRepository(deps.DB), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("cache backend %q needs a redis client", backend)
		}
		return NewRedisRepository(deps.Redis), nil
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
