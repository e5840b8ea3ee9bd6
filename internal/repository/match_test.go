package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/testing/suite"
)

// insertMatch - seeds two funded players, the source lobby and the match
// itself, the way an accepted challenge produces them.
func insertMatch(ctx context.Context, t *testing.T, db *sql.DB) *entity.Match {
	t.Helper()

	creator := seedUser(ctx, t, db, "alice-"+uuid.NewString()[:8], 1000)
	challenger := seedUser(ctx, t, db, "bob-"+uuid.NewString()[:8], 1000)

	lobby := waitingLobby(creator.ID, entity.LobbyPublic, "")
	match := entity.NewMatch(uuid.NewString(), lobby.ID, creator.ID, challenger.ID, 500)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewLobbyRepository(db).Create(ctx, tx, lobby))
	require.NoError(t, NewMatchRepository(db).Create(ctx, tx, match))
	require.NoError(t, tx.Commit())

	return match
}

func TestMatchRepository_CreateAndGet(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	// Given: a freshly created match
	match := insertMatch(ctx, t, st.DB)

	// When: it is loaded back
	retrieved, err := matchRepo.GetByID(ctx, match.ID)

	// Then: identity, starting board and empty move log survive the round trip
	require.NoError(t, err)
	assert.Equal(t, match.WhiteID, retrieved.WhiteID)
	assert.Equal(t, match.BlackID, retrieved.BlackID)
	assert.Equal(t, match.WhiteID, retrieved.Turn)
	assert.Equal(t, entity.MatchStatusWaitingPlayers, retrieved.Status)
	assert.Equal(t, int64(500), retrieved.BetAmount)
	assert.Equal(t, draughts.NewBoard(), retrieved.Board)
	assert.Empty(t, retrieved.MoveLog)
	assert.Empty(t, retrieved.WinnerID)
}

func TestMatchRepository_SetOngoing(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	match := insertMatch(ctx, t, st.DB)

	// When: the second player joins and the status flips
	require.NoError(t, matchRepo.SetOngoing(ctx, match.ID))

	retrieved, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MatchStatusOngoing, retrieved.Status)

	// Then: a repeated join is a no-op
	require.NoError(t, matchRepo.SetOngoing(ctx, match.ID))

	retrieved, err = matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MatchStatusOngoing, retrieved.Status)
}

func TestMatchRepository_SaveProgress(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	// Given: an ongoing match with one opening move applied
	match := insertMatch(ctx, t, st.DB)
	require.NoError(t, matchRepo.SetOngoing(ctx, match.ID))

	move := draughts.Move{From: draughts.Square{Row: 5, Col: 0}, To: draughts.Square{Row: 4, Col: 1}}
	match.Board = draughts.Apply(match.Board, move)
	match.Turn = match.BlackID
	match.MoveLog = append(match.MoveLog, entity.MoveRecord{
		UserID:   match.WhiteID,
		Move:     move,
		PlayedAt: time.Now().UTC(),
	})
	match.UpdatedAt = time.Now().UTC()

	// When: the progress is saved
	require.NoError(t, matchRepo.SaveProgress(ctx, match))

	// Then: board, turn and the move log round trip
	retrieved, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, match.Board, retrieved.Board)
	assert.Equal(t, match.BlackID, retrieved.Turn)
	require.Len(t, retrieved.MoveLog, 1)
	assert.Equal(t, match.WhiteID, retrieved.MoveLog[0].UserID)
	assert.True(t, move.SameEndpoints(retrieved.MoveLog[0].Move))
}

func TestMatchRepository_Finish(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	// Given: an ongoing match
	match := insertMatch(ctx, t, st.DB)
	require.NoError(t, matchRepo.SetOngoing(ctx, match.ID))

	match.Status = entity.MatchStatusFinished
	match.WinnerID = match.WhiteID
	match.LoserID = match.BlackID
	match.EndReason = entity.EndReasonCheckmate
	match.PlatformFee = 100
	match.UpdatedAt = time.Now().UTC()

	// When: the terminal form is written under a row lock
	tx, err := st.DB.BeginTx(ctx, nil)
	require.NoError(t, err)

	locked, err := matchRepo.GetForUpdate(ctx, tx, match.ID)
	require.NoError(t, err)
	require.True(t, locked.IsOngoing())

	require.NoError(t, matchRepo.Finish(ctx, tx, match))
	require.NoError(t, tx.Commit())

	// Then: the match is finished with winner, loser, reason and fee
	retrieved, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsFinished())
	assert.Equal(t, match.WhiteID, retrieved.WinnerID)
	assert.Equal(t, match.BlackID, retrieved.LoserID)
	assert.Equal(t, entity.EndReasonCheckmate, retrieved.EndReason)
	assert.Equal(t, int64(100), retrieved.PlatformFee)
}

func TestMatchRepository_Cancel(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	// Given: a match still waiting for its second player
	match := insertMatch(ctx, t, st.DB)

	// When: it is cancelled
	tx, err := st.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, matchRepo.Cancel(ctx, tx, match.ID, entity.EndReasonTimeout))
	require.NoError(t, tx.Commit())

	// Then: the match is terminal with the timeout reason
	retrieved, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsCancelled())
	assert.Equal(t, entity.EndReasonTimeout, retrieved.EndReason)
}

func TestMatchRepository_ListWaitingBefore(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	matchRepo := NewMatchRepository(st.DB)

	// Given: a stale waiting match and an ongoing one
	stale := insertMatch(ctx, t, st.DB)
	_, err := st.DB.ExecContext(ctx, `UPDATE matches SET created_at = now() - interval '1 hour' WHERE id = $1`, stale.ID)
	require.NoError(t, err)

	ongoing := insertMatch(ctx, t, st.DB)
	require.NoError(t, matchRepo.SetOngoing(ctx, ongoing.ID))

	// When: waiting matches older than two minutes are listed
	matches, err := matchRepo.ListWaitingBefore(ctx, time.Now().UTC().Add(-2*time.Minute))

	// Then: only the stale waiting match qualifies
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, stale.ID, matches[0].ID)
}
