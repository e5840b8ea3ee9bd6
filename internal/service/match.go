package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/matchlock"
)

type MatchService interface {
	CreateFromChallenge(ctx context.Context, lobbyID, challengerID string) (*entity.Match, error)
	Start(ctx context.Context, matchID string) (*entity.Match, error)
	ApplyMove(ctx context.Context, matchID, userID string, submitted draughts.Move) (*MoveOutcome, error)
	Resign(ctx context.Context, matchID, userID string) (*entity.Match, error)
	CancelByTimeout(ctx context.Context, matchID string) (*entity.Match, error)
	Reload(ctx context.Context, matchID string) (*entity.Match, error)
}

// MoveOutcome - what a successful ApplyMove produced. Applied is the
// server-generated move, path and captures included, never the client's
// submission.
type MoveOutcome struct {
	Match    *entity.Match
	Applied  draughts.Move
	Finished bool
}

type matchStore interface {
	Create(ctx context.Context, tx *sql.Tx, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*entity.Match, error)
	SetOngoing(ctx context.Context, id string) error
	SaveProgress(ctx context.Context, match *entity.Match) error
	Finish(ctx context.Context, tx *sql.Tx, match *entity.Match) error
	Cancel(ctx context.Context, tx *sql.Tx, id, reason string) error
}

type liveStore interface {
	Save(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	DeleteByID(ctx context.Context, id string) error
}

type matchService struct {
	logger *slog.Logger

	db         *sql.DB
	matchRepo  matchStore
	lobbyRepo  lobbyStore
	liveRepo   liveStore
	ledger     ledger
	settlement SettlementService
	index      lobbyIndex

	locks *matchlock.Registry
}

func NewMatchService(
	logger *slog.Logger,
	db *sql.DB,
	matchRepo matchStore,
	lobbyRepo lobbyStore,
	liveRepo liveStore,
	ledger ledger,
	settlement SettlementService,
	index lobbyIndex,
	locks *matchlock.Registry,
) MatchService {
	return &matchService{
		logger:     logger,
		db:         db,
		matchRepo:  matchRepo,
		lobbyRepo:  lobbyRepo,
		liveRepo:   liveRepo,
		ledger:     ledger,
		settlement: settlement,
		index:      index,
		locks:      locks,
	}
}

// CreateFromChallenge - turns a waiting lobby into a match. One
// transaction: row-lock the lobby, escrow the challenger's stake, flip the
// lobby to playing and insert the match. Concurrent accepts of the same
// lobby serialize on the row lock; the loser finds it no longer waiting.
func (that *matchService) CreateFromChallenge(ctx context.Context, lobbyID, challengerID string) (*entity.Match, error) {
	var (
		match *entity.Match
		lobby *entity.Lobby
	)

	err := runInTx(ctx, that.db, func(tx *sql.Tx) error {
		var err error

		lobby, err = that.lobbyRepo.GetForUpdate(ctx, tx, lobbyID)
		if err != nil {
			return err
		}

		if !lobby.IsWaiting() {
			return apperror.ErrLobbyUnavailable
		}
		if lobby.CreatorID == challengerID {
			return apperror.ErrOwnLobby
		}

		if err = that.ledger.Debit(ctx, tx, challengerID, lobby.BetAmount); err != nil {
			return fmt.Errorf("failed to escrow stake: %w", err)
		}
		if err = that.lobbyRepo.SetStatus(ctx, tx, lobby.ID, entity.LobbyStatusPlaying); err != nil {
			return err
		}

		match = entity.NewMatch(uuid.NewString(), lobby.ID, lobby.CreatorID, challengerID, lobby.BetAmount)

		return that.matchRepo.Create(ctx, tx, match)
	})
	if err != nil {
		return nil, err
	}

	if err = that.liveRepo.Save(ctx, match); err != nil {
		that.logger.Error("failed to cache match", "match_id", match.ID, "error", err)
	}
	if err = that.index.Remove(ctx, lobby); err != nil {
		that.logger.Error("failed to unindex lobby", "lobby_id", lobby.ID, "error", err)
	}

	that.logger.Info("challenge accepted",
		"match_id", match.ID, "lobby_id", lobby.ID,
		"creator_id", lobby.CreatorID, "challenger_id", challengerID, "bet", lobby.BetAmount)

	return match, nil
}

// Start - flips waiting_players to ongoing once both players are present
// in the match room. Repeated calls are no-ops.
func (that *matchService) Start(ctx context.Context, matchID string) (*entity.Match, error) {
	release := that.locks.Lock(matchID)
	defer release()

	match, err := that.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.IsWaitingPlayers() {
		return match, nil
	}

	if err = that.matchRepo.SetOngoing(ctx, matchID); err != nil {
		return nil, err
	}

	match.Status = entity.MatchStatusOngoing
	match.UpdatedAt = time.Now().UTC()

	if err = that.liveRepo.Save(ctx, match); err != nil {
		that.logger.Error("failed to cache match", "match_id", match.ID, "error", err)
	}

	return match, nil
}

// ApplyMove - validates and applies one move under the match lock. The
// legal set is recomputed server-side; the submission only selects among
// generated moves, by endpoints and, when several maximal chains share
// them, by path.
func (that *matchService) ApplyMove(ctx context.Context, matchID, userID string, submitted draughts.Move) (*MoveOutcome, error) {
	release := that.locks.Lock(matchID)
	defer release()

	match, err := that.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}
	if err = match.ConfirmOngoing(); err != nil {
		return nil, err
	}
	if match.Turn != userID {
		return nil, apperror.ErrNotYourTurn
	}

	color := match.ColorOf(userID)

	applied, ok := draughts.FindMove(draughts.LegalMoves(match.Board, color), submitted)
	if !ok {
		return nil, apperror.ErrIllegalMove
	}

	opponentID := match.OpponentOf(userID)

	match.Board = draughts.Apply(match.Board, applied)
	match.MoveLog = append(match.MoveLog, entity.MoveRecord{
		UserID:   userID,
		Move:     applied,
		PlayedAt: time.Now().UTC(),
	})
	match.Turn = opponentID
	match.UpdatedAt = time.Now().UTC()

	reason := ""
	opponentColor := draughts.Opponent(color)
	switch {
	case match.Board.CountPieces(opponentColor) == 0:
		reason = entity.EndReasonNoPieces
	case !draughts.HasMoves(match.Board, opponentColor):
		reason = entity.EndReasonCheckmate
	}

	if reason == "" {
		if err = that.matchRepo.SaveProgress(ctx, match); err != nil {
			return nil, err
		}
		if err = that.liveRepo.Save(ctx, match); err != nil {
			that.logger.Error("failed to cache match", "match_id", match.ID, "error", err)
		}

		return &MoveOutcome{Match: match, Applied: applied}, nil
	}

	if err = that.finish(ctx, match, userID, opponentID, reason); err != nil {
		return nil, err
	}

	return &MoveOutcome{Match: match, Applied: applied, Finished: true}, nil
}

// Resign - the resigning player loses, the opponent takes the pot.
func (that *matchService) Resign(ctx context.Context, matchID, userID string) (*entity.Match, error) {
	release := that.locks.Lock(matchID)
	defer release()

	match, err := that.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}
	if err = match.ConfirmOngoing(); err != nil {
		return nil, err
	}

	if err = that.finish(ctx, match, match.OpponentOf(userID), userID, entity.EndReasonResignation); err != nil {
		return nil, err
	}

	return match, nil
}

// CancelByTimeout - abandons the match and refunds both escrowed stakes.
// The terminal status is re-checked under the row lock, so a second call,
// or a cancel racing a settlement, is a no-op.
func (that *matchService) CancelByTimeout(ctx context.Context, matchID string) (*entity.Match, error) {
	release := that.locks.Lock(matchID)
	defer release()

	var cancelled *entity.Match

	err := runInTx(ctx, that.db, func(tx *sql.Tx) error {
		match, err := that.matchRepo.GetForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}

		if match.IsTerminal() {
			cancelled = match
			return nil
		}

		if err = that.ledger.Credit(ctx, tx, match.WhiteID, match.BetAmount); err != nil {
			return fmt.Errorf("failed to refund stake: %w", err)
		}
		if err = that.ledger.Credit(ctx, tx, match.BlackID, match.BetAmount); err != nil {
			return fmt.Errorf("failed to refund stake: %w", err)
		}
		if err = that.matchRepo.Cancel(ctx, tx, match.ID, entity.EndReasonTimeout); err != nil {
			return err
		}

		match.Status = entity.MatchStatusCancelled
		match.EndReason = entity.EndReasonTimeout
		match.UpdatedAt = time.Now().UTC()
		cancelled = match

		that.logger.Info("match cancelled by timeout",
			"match_id", match.ID, "refund", match.BetAmount)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = that.liveRepo.DeleteByID(ctx, matchID); err != nil {
		that.logger.Error("failed to drop cached match", "match_id", matchID, "error", err)
	}

	return cancelled, nil
}

// Reload - current state for a client that missed live events.
func (that *matchService) Reload(ctx context.Context, matchID string) (*entity.Match, error) {
	return that.load(ctx, matchID)
}

// load - live snapshot first, postgres on a miss, repairing the cache for
// non-terminal matches.
func (that *matchService) load(ctx context.Context, matchID string) (*entity.Match, error) {
	match, err := that.liveRepo.GetByID(ctx, matchID)
	if err == nil {
		return match, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		that.logger.Error("live match lookup failed", "match_id", matchID, "error", err)
	}

	match, err = that.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.IsTerminal() {
		if err = that.liveRepo.Save(ctx, match); err != nil {
			that.logger.Error("failed to cache match", "match_id", matchID, "error", err)
		}
	}

	return match, nil
}

// finish - settlement and the flip to finished in one transaction.
func (that *matchService) finish(ctx context.Context, match *entity.Match, winnerID, loserID, reason string) error {
	err := runInTx(ctx, that.db, func(tx *sql.Tx) error {
		locked, err := that.matchRepo.GetForUpdate(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if locked.IsTerminal() {
			return apperror.ErrMatchFinished
		}

		if err = that.settlement.Settle(ctx, tx, match, winnerID, loserID, reason); err != nil {
			return err
		}

		return that.matchRepo.Finish(ctx, tx, match)
	})
	if err != nil {
		return err
	}

	if err = that.liveRepo.DeleteByID(ctx, match.ID); err != nil {
		that.logger.Error("failed to drop cached match", "match_id", match.ID, "error", err)
	}

	return nil
}
