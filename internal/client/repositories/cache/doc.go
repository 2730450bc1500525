// Package cache is the local cache store: a key-value store partitioned by
// domain that serves both as a read-through cache for remote fetches and as
// an offline snapshot between sessions.
//
// Values are opaque bytes (JSON of already decrypted records). Entries never
// expire; they are replaced wholesale by a fresher fetch or removed
// explicitly. Only values that decrypted successfully are ever written, so
// a cache hit is always readable.
//
// Keys follow the "<kind>:<uuid>" convention, see NoteContentKey and
// ChatMessagesKey. List snapshots use the fixed NotesAndTagsKey and
// ConversationsKey.
//
// Get never fails on a missing key: it returns (nil, nil) and callers must
// check for nil before treating the result as a hit.
//
// Implementations:
//
//   - SQLiteRepository: modernc.org/sqlite, schema from internal/client/migrations
//   - RedisRepository: go-redis, keys namespaced as gophdrive:<domain>:<key>
//   - MemoryRepository: process-local, used in tests and with cache_backend=memory
package cache
