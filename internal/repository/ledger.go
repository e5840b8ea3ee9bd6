package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/damasarena/damas-backend/internal/apperror"
)

// LedgerRepository - the only writer of balances and win/loss statistics.
// Every method takes the enclosing transaction so that money movements
// commit or roll back together with the match or lobby status transition
// they accompany.
type LedgerRepository interface {
	Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error
	Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error
	ApplyResult(ctx context.Context, tx *sql.Tx, winnerID, loserID string, prize, netWinnings int64) error
}

type ledgerRepository struct{}

func NewLedgerRepository() LedgerRepository {
	return &ledgerRepository{}
}

// Debit - withholds amount from the user's balance. The balance check and
// the subtraction are a single conditional UPDATE, so a concurrent debit
// can never overdraw the account.
func (that *ledgerRepository) Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error {
	query := `UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1`

	result, err := tx.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("can't debit user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read debit result: %w", err)
	}
	if affected == 0 {
		return apperror.ErrInsufficientFunds
	}

	return nil
}

func (that *ledgerRepository) Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error {
	query := `UPDATE users SET balance = balance + $1 WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("can't credit user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read credit result: %w", err)
	}
	if affected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}

// ApplyResult - settlement mutations: the winner takes the prize and the
// net winnings delta, the loser takes a loss. The loser's balance is not
// touched; their stake was consumed into the pot at escrow time.
func (that *ledgerRepository) ApplyResult(ctx context.Context, tx *sql.Tx, winnerID, loserID string, prize, netWinnings int64) error {
	winnerQuery := `UPDATE users
		SET balance = balance + $1, wins = wins + 1, total_winnings = total_winnings + $2
		WHERE id = $3`

	if _, err := tx.ExecContext(ctx, winnerQuery, prize, netWinnings, winnerID); err != nil {
		return fmt.Errorf("can't apply winner result: %w", err)
	}

	loserQuery := `UPDATE users SET losses = losses + 1 WHERE id = $1`

	if _, err := tx.ExecContext(ctx, loserQuery, loserID); err != nil {
		return fmt.Errorf("can't apply loser result: %w", err)
	}

	return nil
}
