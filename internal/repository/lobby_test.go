package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/testing/suite"
)

func insertLobby(ctx context.Context, t *testing.T, db *sql.DB, lobby *entity.Lobby) {
	t.Helper()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewLobbyRepository(db).Create(ctx, tx, lobby))
	require.NoError(t, tx.Commit())
}

func waitingLobby(creatorID, visibility, code string) *entity.Lobby {
	return &entity.Lobby{
		ID:         uuid.NewString(),
		CreatorID:  creatorID,
		BetAmount:  500,
		Visibility: visibility,
		Code:       code,
		Status:     entity.LobbyStatusWaiting,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestLobbyRepository_CreateAndGet(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	lobbyRepo := NewLobbyRepository(st.DB)

	// Given: a creator and their private lobby
	creator := seedUser(ctx, t, st.DB, "alice", 1000)
	lobby := waitingLobby(creator.ID, entity.LobbyPrivate, "DM-A1B2C3")

	// When: the lobby is created
	insertLobby(ctx, t, st.DB, lobby)

	// Then: it loads back with the creator's name joined in
	retrieved, err := lobbyRepo.GetByID(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, creator.ID, retrieved.CreatorID)
	assert.Equal(t, "alice", retrieved.CreatorName)
	assert.Equal(t, int64(500), retrieved.BetAmount)
	assert.Equal(t, "DM-A1B2C3", retrieved.Code)
	assert.True(t, retrieved.IsWaiting())

	// And: it resolves by code while waiting
	byCode, err := lobbyRepo.GetWaitingByCode(ctx, "DM-A1B2C3")
	require.NoError(t, err)
	assert.Equal(t, lobby.ID, byCode.ID)
}

func TestLobbyRepository_ListWaitingPublic(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	lobbyRepo := NewLobbyRepository(st.DB)

	// Given: a public waiting lobby, a private one and a cancelled one
	creator := seedUser(ctx, t, st.DB, "alice", 3000)

	public := waitingLobby(creator.ID, entity.LobbyPublic, "")
	private := waitingLobby(creator.ID, entity.LobbyPrivate, "DM-A1B2C3")
	cancelled := waitingLobby(creator.ID, entity.LobbyPublic, "")
	insertLobby(ctx, t, st.DB, public)
	insertLobby(ctx, t, st.DB, private)
	insertLobby(ctx, t, st.DB, cancelled)

	tx, err := st.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, lobbyRepo.SetStatus(ctx, tx, cancelled.ID, entity.LobbyStatusCancelled))
	require.NoError(t, tx.Commit())

	// When: the public board is listed
	lobbies, err := lobbyRepo.ListWaitingPublic(ctx)

	// Then: only the waiting public lobby shows up
	require.NoError(t, err)
	require.Len(t, lobbies, 1)
	assert.Equal(t, public.ID, lobbies[0].ID)
}

func TestLobbyRepository_GetForUpdate(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	lobbyRepo := NewLobbyRepository(st.DB)

	creator := seedUser(ctx, t, st.DB, "alice", 1000)
	lobby := waitingLobby(creator.ID, entity.LobbyPublic, "")
	insertLobby(ctx, t, st.DB, lobby)

	t.Run("GetForUpdate_Success", func(t *testing.T) {
		// When: the lobby is loaded under a row lock and cancelled
		tx, err := st.DB.BeginTx(ctx, nil)
		require.NoError(t, err)

		locked, err := lobbyRepo.GetForUpdate(ctx, tx, lobby.ID)
		require.NoError(t, err)
		assert.True(t, locked.IsWaiting())

		require.NoError(t, lobbyRepo.SetStatus(ctx, tx, lobby.ID, entity.LobbyStatusCancelled))
		require.NoError(t, tx.Commit())

		// Then: the status transition is visible after commit
		retrieved, err := lobbyRepo.GetByID(ctx, lobby.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.LobbyStatusCancelled, retrieved.Status)

		// And: the code lookup no longer matches a waiting lobby
		_, err = lobbyRepo.GetWaitingByCode(ctx, lobby.Code)
		require.Error(t, err)
	})

	t.Run("GetForUpdate_NotFound", func(t *testing.T) {
		tx, err := st.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = tx.Rollback() })

		_, err = lobbyRepo.GetForUpdate(ctx, tx, uuid.NewString())

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestLobbyRepository_ListWaitingBefore(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	lobbyRepo := NewLobbyRepository(st.DB)

	// Given: one stale lobby and one fresh lobby
	creator := seedUser(ctx, t, st.DB, "alice", 2000)

	stale := waitingLobby(creator.ID, entity.LobbyPublic, "")
	stale.CreatedAt = time.Now().UTC().Add(-time.Hour)
	fresh := waitingLobby(creator.ID, entity.LobbyPublic, "")
	insertLobby(ctx, t, st.DB, stale)
	insertLobby(ctx, t, st.DB, fresh)

	// When: lobbies older than ten minutes are listed
	expired, err := lobbyRepo.ListWaitingBefore(ctx, time.Now().UTC().Add(-10*time.Minute))

	// Then: only the stale one qualifies
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}
