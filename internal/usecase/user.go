package usecase

import (
	"context"
	"fmt"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/service"
)

// UserUseCase - the operations the REST API exposes.
type UserUseCase interface {
	Register(ctx context.Context, username, email, password string) (string, *entity.User, error)
	Login(ctx context.Context, email, password string) (string, *entity.User, error)
	VerifyToken(token string) (string, error)

	Profile(ctx context.Context, userID string) (*entity.User, error)
	Lobbies(ctx context.Context) ([]*entity.Lobby, error)
	MatchState(ctx context.Context, matchID, userID string) (*entity.Match, error)

	RequestDeposit(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	WalletRequests(ctx context.Context, userID string) ([]*entity.WalletRequest, error)
}

type userUseCase struct {
	authService   service.AuthService
	userService   service.UserService
	lobbyService  service.LobbyService
	matchService  service.MatchService
	walletService service.WalletService
}

func NewUserUseCase(
	authService service.AuthService,
	userService service.UserService,
	lobbyService service.LobbyService,
	matchService service.MatchService,
	walletService service.WalletService,
) UserUseCase {
	return &userUseCase{
		authService:   authService,
		userService:   userService,
		lobbyService:  lobbyService,
		matchService:  matchService,
		walletService: walletService,
	}
}

// Register - creates the account and logs it in, so the client holds a
// token right away.
func (that *userUseCase) Register(ctx context.Context, username, email, password string) (string, *entity.User, error) {
	user, err := that.authService.Register(ctx, username, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := that.authService.GenerateToken(user.ID)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (that *userUseCase) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	return that.authService.Login(ctx, email, password)
}

func (that *userUseCase) VerifyToken(token string) (string, error) {
	return that.authService.VerifyToken(token)
}

func (that *userUseCase) Profile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := that.userService.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return user, nil
}

func (that *userUseCase) Lobbies(ctx context.Context) ([]*entity.Lobby, error) {
	lobbies, err := that.lobbyService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}

	return lobbies, nil
}

// MatchState - full state reload for a participant who missed live events.
func (that *userUseCase) MatchState(ctx context.Context, matchID, userID string) (*entity.Match, error) {
	match, err := that.matchService.Reload(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	if !match.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}

	return match, nil
}

func (that *userUseCase) RequestDeposit(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error) {
	return that.walletService.RequestDeposit(ctx, userID, amount)
}

func (that *userUseCase) RequestWithdrawal(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error) {
	return that.walletService.RequestWithdrawal(ctx, userID, amount)
}

func (that *userUseCase) WalletRequests(ctx context.Context, userID string) ([]*entity.WalletRequest, error) {
	return that.walletService.ListRequests(ctx, userID)
}
