package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
)

// SQLiteRepository stores entries in the cache_entries table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, domain Domain, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE domain = ? AND key = ?`, string(domain), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache[%s/%s]: %w", domain, key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, domain Domain, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_entries (domain, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(domain, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(domain), key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set cache[%s/%s]: %w", domain, key, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, domain Domain, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	argSets := make([][]any, len(keys))
	for i, k := range keys {
		argSets[i] = []any{string(domain), k}
	}
	err := dbx.ExecBatch(ctx, r.db, `DELETE FROM cache_entries WHERE domain = ? AND key = ?`, argSets...)
	if err != nil {
		return fmt.Errorf("failed to remove cache keys in %s: %w", domain, err)
	}
	return nil
}

func (r *SQLiteRepository) Keys(ctx context.Context, domain Domain) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE domain = ? ORDER BY key`, string(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys in %s: %w", domain, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, domain Domain) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE domain = ?`, string(domain))
	if err != nil {
		return fmt.Errorf("failed to clear cache domain %s: %w", domain, err)
	}
	return nil
}
