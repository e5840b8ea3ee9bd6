package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/config"
	"github.com/damasarena/damas-backend/internal/entity"
)

type WalletService interface {
	RequestDeposit(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	ListRequests(ctx context.Context, userID string) ([]*entity.WalletRequest, error)
}

type walletStore interface {
	CreateRequest(ctx context.Context, request *entity.WalletRequest) error
	ListByUser(ctx context.Context, userID string) ([]*entity.WalletRequest, error)
}

type walletService struct {
	walletRepo walletStore
	userRepo   userRepo
	bounds     config.Wallet
}

func NewWalletService(walletRepo walletStore, userRepo userRepo, bounds config.Wallet) WalletService {
	return &walletService{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		bounds:     bounds,
	}
}

// RequestDeposit - records a pending deposit. Balances move only when an
// operator settles the request, never here.
func (that *walletService) RequestDeposit(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error) {
	if amount < that.bounds.MinDeposit || amount > that.bounds.MaxDeposit {
		return nil, fmt.Errorf("%w: deposit must be between %d and %d",
			apperror.ErrAmountOutOfBounds, that.bounds.MinDeposit, that.bounds.MaxDeposit)
	}

	return that.createRequest(ctx, userID, entity.WalletRequestDeposit, amount)
}

// RequestWithdrawal - records a pending withdrawal; the amount must fit
// both the configured bounds and the current balance.
func (that *walletService) RequestWithdrawal(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error) {
	if amount < that.bounds.MinWithdrawal || amount > that.bounds.MaxWithdrawal {
		return nil, fmt.Errorf("%w: withdrawal must be between %d and %d",
			apperror.ErrAmountOutOfBounds, that.bounds.MinWithdrawal, that.bounds.MaxWithdrawal)
	}

	user, err := that.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	if amount > user.Balance {
		return nil, apperror.ErrInsufficientFunds
	}

	return that.createRequest(ctx, userID, entity.WalletRequestWithdrawal, amount)
}

func (that *walletService) ListRequests(ctx context.Context, userID string) ([]*entity.WalletRequest, error) {
	requests, err := that.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list wallet requests: %w", err)
	}

	return requests, nil
}

func (that *walletService) createRequest(ctx context.Context, userID, kind string, amount int64) (*entity.WalletRequest, error) {
	request := &entity.WalletRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Status:    entity.WalletRequestPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := that.walletRepo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}
