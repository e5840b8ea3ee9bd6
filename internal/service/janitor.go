package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

// Notifier - lets the session router push the events a sweep produces.
// The janitor works without one; a nil notifier just means nobody is
// listening.
type Notifier interface {
	LobbyRemoved(lobbyID string)
	MatchCancelled(match *entity.Match)
}

type expiredLobbies interface {
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Lobby, error)
}

type staleMatches interface {
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*entity.Match, error)
}

// Janitor - background sweep for state nobody will move forward on its
// own: waiting lobbies past their timeout and accepted matches whose
// second player never joined. Every expiry goes through the same refund
// paths the players themselves would use.
type Janitor struct {
	logger *slog.Logger

	lobbyRepo    expiredLobbies
	matchRepo    staleMatches
	lobbyService LobbyService
	matchService MatchService

	lobbyTimeout time.Duration
	joinTimeout  time.Duration
	interval     time.Duration

	notifier Notifier
}

func NewJanitor(
	logger *slog.Logger,
	lobbyRepo expiredLobbies,
	matchRepo staleMatches,
	lobbyService LobbyService,
	matchService MatchService,
	lobbyTimeout, joinTimeout, interval time.Duration,
) *Janitor {
	return &Janitor{
		logger:       logger,
		lobbyRepo:    lobbyRepo,
		matchRepo:    matchRepo,
		lobbyService: lobbyService,
		matchService: matchService,
		lobbyTimeout: lobbyTimeout,
		joinTimeout:  joinTimeout,
		interval:     interval,
	}
}

// SetNotifier - wired after construction, once the session router exists.
func (that *Janitor) SetNotifier(notifier Notifier) {
	that.notifier = notifier
}

// Run - sweeps on the configured interval until the context ends.
func (that *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.Sweep(ctx)
		}
	}
}

// Sweep - one pass over expired lobbies and stale matches.
func (that *Janitor) Sweep(ctx context.Context) {
	log := that.logger.With("method", "Sweep")

	now := time.Now().UTC()

	lobbies, err := that.lobbyRepo.ListWaitingBefore(ctx, now.Add(-that.lobbyTimeout))
	if err != nil {
		log.Error("failed to list expired lobbies", "error", err)
	}
	for _, lobby := range lobbies {
		cancelled, err := that.lobbyService.Cancel(ctx, lobby.ID, lobby.CreatorID)
		if errors.Is(err, apperror.ErrLobbyUnavailable) {
			// accepted or cancelled while the sweep was running
			continue
		}
		if err != nil {
			log.Error("failed to expire lobby", "lobby_id", lobby.ID, "error", err)
			continue
		}

		log.Info("expired lobby", "lobby_id", cancelled.ID, "creator_id", cancelled.CreatorID)

		if that.notifier != nil {
			that.notifier.LobbyRemoved(cancelled.ID)
		}
	}

	matches, err := that.matchRepo.ListWaitingBefore(ctx, now.Add(-that.joinTimeout))
	if err != nil {
		log.Error("failed to list stale matches", "error", err)
	}
	for _, match := range matches {
		cancelled, err := that.matchService.CancelByTimeout(ctx, match.ID)
		if err != nil {
			log.Error("failed to cancel stale match", "match_id", match.ID, "error", err)
			continue
		}
		if !cancelled.IsCancelled() {
			// launched or settled while the sweep was running
			continue
		}

		log.Info("cancelled stale match", "match_id", cancelled.ID)

		if that.notifier != nil {
			that.notifier.MatchCancelled(cancelled)
		}
	}
}
