package usecase

import (
	"context"
	"fmt"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/service"
)

// GameUseCase - the operations the session router exposes over websocket.
type GameUseCase interface {
	CreateLobby(ctx context.Context, userID string, bet int64, visibility string) (*entity.Lobby, error)
	CancelLobby(ctx context.Context, lobbyID, userID string) (*entity.Lobby, error)
	ListLobbies(ctx context.Context) ([]*entity.Lobby, error)
	AcceptChallenge(ctx context.Context, userID, lobbyID, code string) (*entity.Match, error)

	JoinMatch(ctx context.Context, matchID, userID string) (*entity.Match, error)
	StartMatch(ctx context.Context, matchID string) (*entity.Match, error)
	MakeMove(ctx context.Context, matchID, userID string, move draughts.Move) (*service.MoveOutcome, error)
	Resign(ctx context.Context, matchID, userID string) (*entity.Match, error)
	AbandonMatch(ctx context.Context, matchID string) (*entity.Match, error)

	GetUser(ctx context.Context, userID string) (*entity.User, error)
}

type gameUseCase struct {
	lobbyService service.LobbyService
	matchService service.MatchService
	userService  service.UserService
}

func NewGameUseCase(lobbyService service.LobbyService, matchService service.MatchService, userService service.UserService) GameUseCase {
	return &gameUseCase{
		lobbyService: lobbyService,
		matchService: matchService,
		userService:  userService,
	}
}

func (that *gameUseCase) CreateLobby(ctx context.Context, userID string, bet int64, visibility string) (*entity.Lobby, error) {
	lobby, err := that.lobbyService.Create(ctx, userID, bet, visibility)
	if err != nil {
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}

	return lobby, nil
}

func (that *gameUseCase) CancelLobby(ctx context.Context, lobbyID, userID string) (*entity.Lobby, error) {
	lobby, err := that.lobbyService.Cancel(ctx, lobbyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel lobby: %w", err)
	}

	return lobby, nil
}

func (that *gameUseCase) ListLobbies(ctx context.Context) ([]*entity.Lobby, error) {
	lobbies, err := that.lobbyService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}

	return lobbies, nil
}

// AcceptChallenge - accepts a lobby either by id or, for private lobbies,
// by join code.
func (that *gameUseCase) AcceptChallenge(ctx context.Context, userID, lobbyID, code string) (*entity.Match, error) {
	if lobbyID == "" && code == "" {
		return nil, fmt.Errorf("%w: lobby_id or code is required", apperror.ErrValidation)
	}

	if lobbyID == "" {
		lobby, err := that.lobbyService.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		lobbyID = lobby.ID
	}

	match, err := that.matchService.CreateFromChallenge(ctx, lobbyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept challenge: %w", err)
	}

	return match, nil
}

// JoinMatch - participant-checked state reload for a room join.
func (that *gameUseCase) JoinMatch(ctx context.Context, matchID, userID string) (*entity.Match, error) {
	match, err := that.matchService.Reload(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	if !match.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}

	return match, nil
}

func (that *gameUseCase) StartMatch(ctx context.Context, matchID string) (*entity.Match, error) {
	match, err := that.matchService.Start(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}

	return match, nil
}

func (that *gameUseCase) MakeMove(ctx context.Context, matchID, userID string, move draughts.Move) (*service.MoveOutcome, error) {
	outcome, err := that.matchService.ApplyMove(ctx, matchID, userID, move)
	if err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	return outcome, nil
}

func (that *gameUseCase) Resign(ctx context.Context, matchID, userID string) (*entity.Match, error) {
	match, err := that.matchService.Resign(ctx, matchID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resign: %w", err)
	}

	return match, nil
}

// AbandonMatch - invoked when a disconnected player's reconnect window
// runs out.
func (that *gameUseCase) AbandonMatch(ctx context.Context, matchID string) (*entity.Match, error) {
	match, err := that.matchService.CancelByTimeout(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel match: %w", err)
	}

	return match, nil
}

func (that *gameUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := that.userService.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
