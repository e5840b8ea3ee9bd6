package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

type LobbyService interface {
	Create(ctx context.Context, creatorID string, bet int64, visibility string) (*entity.Lobby, error)
	Cancel(ctx context.Context, lobbyID, userID string) (*entity.Lobby, error)
	List(ctx context.Context) ([]*entity.Lobby, error)
	GetByCode(ctx context.Context, code string) (*entity.Lobby, error)
}

type lobbyStore interface {
	Create(ctx context.Context, tx *sql.Tx, lobby *entity.Lobby) error
	GetByID(ctx context.Context, id string) (*entity.Lobby, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Lobby, error)
	GetWaitingByCode(ctx context.Context, code string) (*entity.Lobby, error)
	SetStatus(ctx context.Context, tx *sql.Tx, id, status string) error
	ListWaitingPublic(ctx context.Context) ([]*entity.Lobby, error)
}

type lobbyIndex interface {
	Add(ctx context.Context, lobby *entity.Lobby) error
	Remove(ctx context.Context, lobby *entity.Lobby) error
	ListOpen(ctx context.Context) ([]*entity.Lobby, error)
	ResolveCode(ctx context.Context, code string) (string, error)
}

type lobbyService struct {
	logger *slog.Logger

	db        *sql.DB
	lobbyRepo lobbyStore
	ledger    ledger
	index     lobbyIndex

	maxBet int64
}

func NewLobbyService(logger *slog.Logger, db *sql.DB, lobbyRepo lobbyStore, ledger ledger, index lobbyIndex, maxBet int64) LobbyService {
	return &lobbyService{
		logger:    logger,
		db:        db,
		lobbyRepo: lobbyRepo,
		ledger:    ledger,
		index:     index,
		maxBet:    maxBet,
	}
}

// Create - opens a challenge and escrows the creator's stake in the same
// transaction, so an open lobby always has its bet already withheld.
func (that *lobbyService) Create(ctx context.Context, creatorID string, bet int64, visibility string) (*entity.Lobby, error) {
	if bet <= 0 {
		return nil, fmt.Errorf("%w: bet must be positive", apperror.ErrValidation)
	}
	if bet > that.maxBet {
		return nil, apperror.ErrBetTooHigh
	}

	switch visibility {
	case entity.LobbyPublic, entity.LobbyPrivate:
	default:
		return nil, fmt.Errorf("%w: unknown visibility %q", apperror.ErrValidation, visibility)
	}

	lobby := &entity.Lobby{
		ID:         uuid.NewString(),
		CreatorID:  creatorID,
		BetAmount:  bet,
		Visibility: visibility,
		Status:     entity.LobbyStatusWaiting,
		CreatedAt:  time.Now().UTC(),
	}

	if lobby.IsPrivate() {
		code, err := generateLobbyCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate lobby code: %w", err)
		}
		lobby.Code = code
	}

	err := runInTx(ctx, that.db, func(tx *sql.Tx) error {
		if err := that.ledger.Debit(ctx, tx, creatorID, bet); err != nil {
			return fmt.Errorf("failed to escrow stake: %w", err)
		}

		return that.lobbyRepo.Create(ctx, tx, lobby)
	})
	if err != nil {
		return nil, err
	}

	created, err := that.lobbyRepo.GetByID(ctx, lobby.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload lobby: %w", err)
	}

	if err = that.index.Add(ctx, created); err != nil {
		that.logger.Error("failed to index lobby", "lobby_id", created.ID, "error", err)
	}

	return created, nil
}

// Cancel - creator takes their stake back and the lobby leaves the board.
func (that *lobbyService) Cancel(ctx context.Context, lobbyID, userID string) (*entity.Lobby, error) {
	var cancelled *entity.Lobby

	err := runInTx(ctx, that.db, func(tx *sql.Tx) error {
		lobby, err := that.lobbyRepo.GetForUpdate(ctx, tx, lobbyID)
		if err != nil {
			return err
		}

		if !lobby.IsWaiting() {
			return apperror.ErrLobbyUnavailable
		}
		if lobby.CreatorID != userID {
			return fmt.Errorf("%w: only the creator can cancel a lobby", apperror.ErrValidation)
		}

		if err = that.ledger.Credit(ctx, tx, lobby.CreatorID, lobby.BetAmount); err != nil {
			return fmt.Errorf("failed to refund stake: %w", err)
		}
		if err = that.lobbyRepo.SetStatus(ctx, tx, lobby.ID, entity.LobbyStatusCancelled); err != nil {
			return err
		}

		lobby.Status = entity.LobbyStatusCancelled
		cancelled = lobby

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = that.index.Remove(ctx, cancelled); err != nil {
		that.logger.Error("failed to unindex lobby", "lobby_id", cancelled.ID, "error", err)
	}

	return cancelled, nil
}

// List - the open public board, served from the redis index with postgres
// as the fallback.
func (that *lobbyService) List(ctx context.Context) ([]*entity.Lobby, error) {
	lobbies, err := that.index.ListOpen(ctx)
	if err == nil {
		return lobbies, nil
	}

	that.logger.Error("lobby index unavailable, falling back to database", "error", err)

	lobbies, err = that.lobbyRepo.ListWaitingPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}

	return lobbies, nil
}

// GetByCode - resolves a private join code to its open lobby.
func (that *lobbyService) GetByCode(ctx context.Context, code string) (*entity.Lobby, error) {
	if id, err := that.index.ResolveCode(ctx, code); err == nil {
		lobby, err := that.lobbyRepo.GetByID(ctx, id)
		if err == nil && lobby.IsWaiting() {
			return lobby, nil
		}
	}

	lobby, err := that.lobbyRepo.GetWaitingByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lobby code: %w", err)
	}

	return lobby, nil
}

// generateLobbyCode - join code for private lobbies, "DM-" + 6 upper alnum.
func generateLobbyCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}

	return "DM-" + string(b), nil
}
