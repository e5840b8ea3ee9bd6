package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/damasarena/damas-backend/internal/entity"
)

type ledger interface {
	Debit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error
	Credit(ctx context.Context, tx *sql.Tx, userID string, amount int64) error
	ApplyResult(ctx context.Context, tx *sql.Tx, winnerID, loserID string, prize, netWinnings int64) error
}

// SettlementService - pays out a decided match. Runs inside the caller's
// transaction, the one that also flips the match to finished, and is
// invoked at most once per match because every caller holds the match row
// lock and re-checks the status first.
type SettlementService interface {
	Settle(ctx context.Context, tx *sql.Tx, match *entity.Match, winnerID, loserID, reason string) error
}

type settlementService struct {
	logger *slog.Logger

	ledger     ledger
	feePercent int64
}

func NewSettlementService(logger *slog.Logger, ledger ledger, feePercent int64) SettlementService {
	return &settlementService{
		logger:     logger,
		ledger:     ledger,
		feePercent: feePercent,
	}
}

// Settle - moves the pot. Both stakes were escrowed when the match was
// created, so the pot is exactly twice the bet; the platform keeps
// pot × feePercent / 100 (integer floor) and the winner takes the rest.
// The fee is applied as configured even past 50 percent, in which case
// the winner's net goes negative.
func (that *settlementService) Settle(ctx context.Context, tx *sql.Tx, match *entity.Match, winnerID, loserID, reason string) error {
	pot := 2 * match.BetAmount
	fee := pot * that.feePercent / 100
	prize := pot - fee
	netWinnings := prize - match.BetAmount

	if err := that.ledger.ApplyResult(ctx, tx, winnerID, loserID, prize, netWinnings); err != nil {
		return fmt.Errorf("failed to apply settlement: %w", err)
	}

	match.Status = entity.MatchStatusFinished
	match.WinnerID = winnerID
	match.LoserID = loserID
	match.EndReason = reason
	match.PlatformFee = fee
	match.UpdatedAt = time.Now().UTC()

	that.logger.Info("match settled",
		"match_id", match.ID, "winner_id", winnerID, "reason", reason,
		"pot", pot, "fee", fee, "prize", prize)

	return nil
}

// Prize - the amount the winner of the match was paid.
func Prize(match *entity.Match) int64 {
	return 2*match.BetAmount - match.PlatformFee
}
