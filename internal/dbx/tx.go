// Package dbx holds the transaction helpers used by the SQLite cache.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back when fn fails or panics; panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// ExecBatch executes query once per argument set, all in one transaction.
// Either every statement applies or none does.
func ExecBatch(ctx context.Context, db *sql.DB, query string, argSets ...[]any) error {
	if len(argSets) == 0 {
		return nil
	}
	return WithTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i, args := range argSets {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
}
