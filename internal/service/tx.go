package service

import (
	"context"
	"database/sql"
	"fmt"
)

// runInTx - runs fn inside a single transaction, rolling back on error.
// Money movements and the status transitions they accompany always go
// through here so neither can commit without the other.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}
