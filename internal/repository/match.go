package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

type MatchRepository interface {
	Create(ctx context.Context, tx *sql.Tx, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Match, error)
	SetOngoing(ctx context.Context, id string) error
	SaveProgress(ctx context.Context, match *entity.Match) error
	Finish(ctx context.Context, tx *sql.Tx, match *entity.Match) error
	Cancel(ctx context.Context, tx *sql.Tx, id, reason string) error
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Match, error)
}

type matchRepository struct {
	db *sql.DB
}

func NewMatchRepository(db *sql.DB) MatchRepository {
	return &matchRepository{db: db}
}

const matchColumns = `id, lobby_id, white_id, black_id, board, turn, status, bet_amount,
	platform_fee, COALESCE(winner_id, ''), COALESCE(loser_id, ''), COALESCE(end_reason, ''),
	move_log, created_at, updated_at`

func (that *matchRepository) Create(ctx context.Context, tx *sql.Tx, match *entity.Match) error {
	board, moveLog, err := marshalMatchState(match)
	if err != nil {
		return err
	}

	query := `INSERT INTO matches (id, lobby_id, white_id, black_id, board, turn, status,
		bet_amount, move_log, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.ExecContext(ctx, query,
		match.ID, match.LobbyID, match.WhiteID, match.BlackID, board, match.Turn,
		match.Status, match.BetAmount, moveLog, match.CreatedAt, match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("can't create match: %w", err)
	}

	return nil
}

func (that *matchRepository) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(that.db.QueryRowContext(ctx, query, id))
}

// GetForUpdate - loads the match with its row locked until the transaction
// ends. Settlement and cancellation both pass through here, so a match can
// only leave ongoing once.
func (that *matchRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatch(tx.QueryRowContext(ctx, query, id))
}

// SetOngoing - flips waiting_players to ongoing when the second player has
// joined the room. The status guard makes a repeated join a no-op.
func (that *matchRepository) SetOngoing(ctx context.Context, id string) error {
	query := `UPDATE matches SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`

	_, err := that.db.ExecContext(ctx, query,
		entity.MatchStatusOngoing, id, entity.MatchStatusWaitingPlayers)
	if err != nil {
		return fmt.Errorf("can't mark match ongoing: %w", err)
	}

	return nil
}

// SaveProgress - persists board, turn and move log after a non-terminal move.
func (that *matchRepository) SaveProgress(ctx context.Context, match *entity.Match) error {
	board, moveLog, err := marshalMatchState(match)
	if err != nil {
		return err
	}

	query := `UPDATE matches SET board = $1, turn = $2, move_log = $3, updated_at = $4 WHERE id = $5`

	_, err = that.db.ExecContext(ctx, query, board, match.Turn, moveLog, match.UpdatedAt, match.ID)
	if err != nil {
		return fmt.Errorf("can't save match progress: %w", err)
	}

	return nil
}

// Finish - writes the terminal, settled form of the match. Runs in the same
// transaction as the balance mutations, so a finished status and an unpaid
// prize can never be observed together.
func (that *matchRepository) Finish(ctx context.Context, tx *sql.Tx, match *entity.Match) error {
	board, moveLog, err := marshalMatchState(match)
	if err != nil {
		return err
	}

	query := `UPDATE matches SET board = $1, turn = $2, move_log = $3, status = $4,
		winner_id = $5, loser_id = $6, end_reason = $7, platform_fee = $8, updated_at = $9
		WHERE id = $10`

	_, err = tx.ExecContext(ctx, query,
		board, match.Turn, moveLog, entity.MatchStatusFinished,
		match.WinnerID, match.LoserID, match.EndReason, match.PlatformFee,
		match.UpdatedAt, match.ID)
	if err != nil {
		return fmt.Errorf("can't finish match: %w", err)
	}

	return nil
}

// Cancel - marks the match cancelled inside the refund transaction.
func (that *matchRepository) Cancel(ctx context.Context, tx *sql.Tx, id, reason string) error {
	query := `UPDATE matches SET status = $1, end_reason = $2, updated_at = now() WHERE id = $3`

	_, err := tx.ExecContext(ctx, query, entity.MatchStatusCancelled, reason, id)
	if err != nil {
		return fmt.Errorf("can't cancel match: %w", err)
	}

	return nil
}

// ListWaitingBefore - matches still waiting for their second player past the
// cutoff, for the expiry sweep.
func (that *matchRepository) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = $1 AND created_at < $2`

	rows, err := that.db.QueryContext(ctx, query, entity.MatchStatusWaitingPlayers, cutoff)
	if err != nil {
		return nil, fmt.Errorf("can't list stale matches: %w", err)
	}
	defer rows.Close()

	var matches []*entity.Match
	for rows.Next() {
		match, err := scanMatchRow(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read match rows: %w", err)
	}

	return matches, nil
}

func marshalMatchState(match *entity.Match) (board, moveLog []byte, err error) {
	board, err = json.Marshal(match.Board)
	if err != nil {
		return nil, nil, fmt.Errorf("can't marshal board: %w", err)
	}

	moveLog, err = json.Marshal(match.MoveLog)
	if err != nil {
		return nil, nil, fmt.Errorf("can't marshal move log: %w", err)
	}

	return board, moveLog, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row *sql.Row) (*entity.Match, error) {
	match, err := scanMatchRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	return match, err
}

func scanMatchRow(row rowScanner) (*entity.Match, error) {
	var (
		match   entity.Match
		board   []byte
		moveLog []byte
	)

	err := row.Scan(&match.ID, &match.LobbyID, &match.WhiteID, &match.BlackID, &board,
		&match.Turn, &match.Status, &match.BetAmount, &match.PlatformFee,
		&match.WinnerID, &match.LoserID, &match.EndReason, &moveLog,
		&match.CreatedAt, &match.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("can't scan match: %w", err)
	}

	if err = json.Unmarshal(board, &match.Board); err != nil {
		return nil, fmt.Errorf("can't unmarshal board: %w", err)
	}
	if err = json.Unmarshal(moveLog, &match.MoveLog); err != nil {
		return nil, fmt.Errorf("can't unmarshal move log: %w", err)
	}

	return &match, nil
}
