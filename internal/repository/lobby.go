package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

type LobbyRepository interface {
	Create(ctx context.Context, tx *sql.Tx, lobby *entity.Lobby) error
	GetByID(ctx context.Context, id string) (*entity.Lobby, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Lobby, error)
	GetWaitingByCode(ctx context.Context, code string) (*entity.Lobby, error)
	SetStatus(ctx context.Context, tx *sql.Tx, id, status string) error
	ListWaitingPublic(ctx context.Context) ([]*entity.Lobby, error)
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Lobby, error)
}

type lobbyRepository struct {
	db *sql.DB
}

func NewLobbyRepository(db *sql.DB) LobbyRepository {
	return &lobbyRepository{db: db}
}

const lobbySelect = `SELECT l.id, l.creator_id, u.username, l.bet_amount, l.visibility,
	COALESCE(l.code, ''), l.status, l.created_at
	FROM lobbies l JOIN users u ON u.id = l.creator_id`

// Create - inserts the lobby inside the escrow transaction, so the row
// appears only if the creator's stake was actually withheld.
func (that *lobbyRepository) Create(ctx context.Context, tx *sql.Tx, lobby *entity.Lobby) error {
	query := `INSERT INTO lobbies (id, creator_id, bet_amount, visibility, code, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

	_, err := tx.ExecContext(ctx, query,
		lobby.ID, lobby.CreatorID, lobby.BetAmount, lobby.Visibility, lobby.Code, lobby.Status, lobby.CreatedAt)
	if err != nil {
		return fmt.Errorf("can't create lobby: %w", err)
	}

	return nil
}

func (that *lobbyRepository) GetByID(ctx context.Context, id string) (*entity.Lobby, error) {
	row := that.db.QueryRowContext(ctx, lobbySelect+` WHERE l.id = $1`, id)
	return scanLobby(row)
}

// GetForUpdate - loads the lobby with a row lock held for the rest of the
// transaction. Concurrent accepts and cancels of the same lobby serialize
// here, so only one of them sees it still waiting.
func (that *lobbyRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Lobby, error) {
	query := `SELECT id, creator_id, bet_amount, visibility, COALESCE(code, ''), status, created_at
		FROM lobbies WHERE id = $1 FOR UPDATE`

	row := tx.QueryRowContext(ctx, query, id)

	var lobby entity.Lobby
	err := row.Scan(&lobby.ID, &lobby.CreatorID, &lobby.BetAmount, &lobby.Visibility,
		&lobby.Code, &lobby.Status, &lobby.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't get lobby for update: %w", err)
	}

	return &lobby, nil
}

func (that *lobbyRepository) GetWaitingByCode(ctx context.Context, code string) (*entity.Lobby, error) {
	row := that.db.QueryRowContext(ctx, lobbySelect+` WHERE l.code = $1 AND l.status = $2`,
		code, entity.LobbyStatusWaiting)
	return scanLobby(row)
}

func (that *lobbyRepository) SetStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE lobbies SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("can't update lobby status: %w", err)
	}

	return nil
}

// ListWaitingPublic - the open lobby board. Private lobbies are reachable
// by code only and never listed.
func (that *lobbyRepository) ListWaitingPublic(ctx context.Context) ([]*entity.Lobby, error) {
	query := lobbySelect + ` WHERE l.status = $1 AND l.visibility = $2 ORDER BY l.created_at DESC`

	rows, err := that.db.QueryContext(ctx, query, entity.LobbyStatusWaiting, entity.LobbyPublic)
	if err != nil {
		return nil, fmt.Errorf("can't list lobbies: %w", err)
	}
	defer rows.Close()

	return collectLobbies(rows)
}

// ListWaitingBefore - waiting lobbies older than the cutoff, for the
// expiry sweep.
func (that *lobbyRepository) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Lobby, error) {
	query := lobbySelect + ` WHERE l.status = $1 AND l.created_at < $2`

	rows, err := that.db.QueryContext(ctx, query, entity.LobbyStatusWaiting, cutoff)
	if err != nil {
		return nil, fmt.Errorf("can't list expired lobbies: %w", err)
	}
	defer rows.Close()

	return collectLobbies(rows)
}

func scanLobby(row *sql.Row) (*entity.Lobby, error) {
	var lobby entity.Lobby
	err := row.Scan(&lobby.ID, &lobby.CreatorID, &lobby.CreatorName, &lobby.BetAmount,
		&lobby.Visibility, &lobby.Code, &lobby.Status, &lobby.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't scan lobby: %w", err)
	}

	return &lobby, nil
}

func collectLobbies(rows *sql.Rows) ([]*entity.Lobby, error) {
	var lobbies []*entity.Lobby
	for rows.Next() {
		var lobby entity.Lobby
		err := rows.Scan(&lobby.ID, &lobby.CreatorID, &lobby.CreatorName, &lobby.BetAmount,
			&lobby.Visibility, &lobby.Code, &lobby.Status, &lobby.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("can't scan lobby row: %w", err)
		}
		lobbies = append(lobbies, &lobby)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read lobby rows: %w", err)
	}

	return lobbies, nil
}
