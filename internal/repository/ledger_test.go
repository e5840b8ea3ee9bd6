package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/testing/suite"
)

func TestLedgerRepository_Debit(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	userRepo := NewUserRepository(st.DB)
	ledgerRepo := NewLedgerRepository()

	// Given: a user holding 1000
	user := seedUser(ctx, t, st.DB, "alice", 1000)

	t.Run("Debit_Success", func(t *testing.T) {
		// When: 300 is debited
		tx, err := st.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, ledgerRepo.Debit(ctx, tx, user.ID, 300))
		require.NoError(t, tx.Commit())

		// Then: the balance dropped to 700
		reloaded, err := userRepo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(700), reloaded.Balance)
	})

	t.Run("Debit_InsufficientFunds", func(t *testing.T) {
		// When: more than the balance is debited
		tx, err := st.DB.BeginTx(ctx, nil)
		require.NoError(t, err)

		err = ledgerRepo.Debit(ctx, tx, user.ID, 100000)

		// Then: an ErrInsufficientFunds error is returned and the rollback
		// leaves the balance untouched
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
		require.NoError(t, tx.Rollback())

		reloaded, err := userRepo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(700), reloaded.Balance)
	})
}

func TestLedgerRepository_ApplyResult(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	userRepo := NewUserRepository(st.DB)
	ledgerRepo := NewLedgerRepository()

	// Given: a finished match worth a 900 prize on a 500 stake
	winner := seedUser(ctx, t, st.DB, "alice", 0)
	loser := seedUser(ctx, t, st.DB, "bob", 0)

	// When: the result is applied
	tx, err := st.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, ledgerRepo.ApplyResult(ctx, tx, winner.ID, loser.ID, 900, 400))
	require.NoError(t, tx.Commit())

	// Then: the winner took the prize, a win and the net delta; the loser
	// only took a loss
	reloadedWinner, err := userRepo.GetByID(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), reloadedWinner.Balance)
	assert.Equal(t, 1, reloadedWinner.Wins)
	assert.Equal(t, int64(400), reloadedWinner.TotalWinnings)

	reloadedLoser, err := userRepo.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloadedLoser.Balance)
	assert.Equal(t, 1, reloadedLoser.Losses)
	assert.Equal(t, int64(0), reloadedLoser.TotalWinnings)
}
