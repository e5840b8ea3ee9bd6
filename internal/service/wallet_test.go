package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/config"
	"github.com/damasarena/damas-backend/internal/entity"
)

type memWalletRequests struct {
	requests []*entity.WalletRequest
}

func (that *memWalletRequests) CreateRequest(_ context.Context, request *entity.WalletRequest) error {
	that.requests = append(that.requests, request)
	return nil
}

func (that *memWalletRequests) ListByUser(_ context.Context, userID string) ([]*entity.WalletRequest, error) {
	var out []*entity.WalletRequest
	for _, request := range that.requests {
		if request.UserID == userID {
			out = append(out, request)
		}
	}
	return out, nil
}

func walletBounds() config.Wallet {
	return config.Wallet{
		MinDeposit:    500,
		MaxDeposit:    10000,
		MinWithdrawal: 1000,
		MaxWithdrawal: 10000,
	}
}

func fundedUser(users *memUsers, balance int64) *entity.User {
	user := &entity.User{
		ID:       uuid.NewString(),
		Username: "alice",
		Email:    "alice@example.com",
		Balance:  balance,
	}
	users.byID[user.ID] = user
	users.byEmail[user.Email] = user

	return user
}

func TestWalletService_RequestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestDeposit_Success", func(t *testing.T) {
		store := &memWalletRequests{}
		wallet := NewWalletService(store, newMemUsers(), walletBounds())

		// When: a deposit inside the bounds is requested
		request, err := wallet.RequestDeposit(ctx, "user-1", 2000)

		// Then: a pending request row exists and no balance moved
		require.NoError(t, err)
		assert.Equal(t, entity.WalletRequestDeposit, request.Kind)
		assert.Equal(t, entity.WalletRequestPending, request.Status)
		assert.Equal(t, int64(2000), request.Amount)
		assert.Len(t, store.requests, 1)
	})

	t.Run("RequestDeposit_OutOfBounds", func(t *testing.T) {
		wallet := NewWalletService(&memWalletRequests{}, newMemUsers(), walletBounds())

		_, err := wallet.RequestDeposit(ctx, "user-1", 100)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrAmountOutOfBounds)
	})
}

func TestWalletService_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestWithdrawal_Success", func(t *testing.T) {
		users := newMemUsers()
		user := fundedUser(users, 5000)
		wallet := NewWalletService(&memWalletRequests{}, users, walletBounds())

		request, err := wallet.RequestWithdrawal(ctx, user.ID, 3000)

		require.NoError(t, err)
		assert.Equal(t, entity.WalletRequestWithdrawal, request.Kind)
		assert.Equal(t, entity.WalletRequestPending, request.Status)
	})

	t.Run("RequestWithdrawal_OverBalance", func(t *testing.T) {
		users := newMemUsers()
		user := fundedUser(users, 1500)
		wallet := NewWalletService(&memWalletRequests{}, users, walletBounds())

		// When: the withdrawal is inside the bounds but over the balance
		_, err := wallet.RequestWithdrawal(ctx, user.ID, 2000)

		// Then: an ErrInsufficientFunds error should be returned
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
	})

	t.Run("RequestWithdrawal_OutOfBounds", func(t *testing.T) {
		users := newMemUsers()
		user := fundedUser(users, 5000)
		wallet := NewWalletService(&memWalletRequests{}, users, walletBounds())

		_, err := wallet.RequestWithdrawal(ctx, user.ID, 500)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrAmountOutOfBounds)
	})
}

func TestWalletService_ListRequests(t *testing.T) {
	ctx := context.Background()

	users := newMemUsers()
	user := fundedUser(users, 5000)
	wallet := NewWalletService(&memWalletRequests{}, users, walletBounds())

	_, err := wallet.RequestDeposit(ctx, user.ID, 2000)
	require.NoError(t, err)
	_, err = wallet.RequestWithdrawal(ctx, user.ID, 1000)
	require.NoError(t, err)

	requests, err := wallet.ListRequests(ctx, user.ID)

	require.NoError(t, err)
	require.Len(t, requests, 2)
}
