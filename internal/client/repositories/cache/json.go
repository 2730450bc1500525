package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON reads and decodes a cached value. ok is false on a miss. A value
// that no longer decodes is treated as a miss and dropped.
func GetJSON[T any](ctx context.Context, r Repository, domain Domain, key string) (v T, ok bool, err error) {
	raw, err := r.Get(ctx, domain, key)
	if err != nil || raw == nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		_ = r.Remove(ctx, domain, key)
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, r Repository, domain Domain, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache[%s/%s]: %w", domain, key, err)
	}
	return r.Set(ctx, domain, key, raw)
}
