package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/matchlock"
	"github.com/damasarena/damas-backend/internal/repository"
	"github.com/damasarena/damas-backend/testing/suite"
)

// fixture - the full service stack over a dockerized postgres and an
// in-process redis.
type fixture struct {
	db *sql.DB

	userRepo  repository.UserRepository
	ledger    repository.LedgerRepository
	matchRepo repository.MatchRepository
	liveRepo  repository.LiveMatchRepository
	indexRepo repository.LobbyIndexRepository
	lobbyRepo repository.LobbyRepository

	auth         AuthService
	lobbyService LobbyService
	matchService MatchService
}

func newFixture(t *testing.T) (context.Context, *fixture) {
	t.Helper()

	ctx, st := suite.NewPostgres(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := discardLogger()

	f := &fixture{
		db:        st.DB,
		userRepo:  repository.NewUserRepository(st.DB),
		ledger:    repository.NewLedgerRepository(),
		matchRepo: repository.NewMatchRepository(st.DB),
		liveRepo:  repository.NewLiveMatchRepository(client),
		indexRepo: repository.NewLobbyIndexRepository(client),
		lobbyRepo: repository.NewLobbyRepository(st.DB),
	}

	f.auth = NewAuthService(f.userRepo, "test-secret", 0)
	f.lobbyService = NewLobbyService(logger, f.db, f.lobbyRepo, f.ledger, f.indexRepo, 100000)
	f.matchService = NewMatchService(logger, f.db, f.matchRepo, f.lobbyRepo, f.liveRepo,
		f.ledger, NewSettlementService(logger, f.ledger, 10), f.indexRepo, matchlock.NewRegistry())

	return ctx, f
}

// registerUser - registers through the auth service and funds the account
// through the ledger.
func (that *fixture) registerUser(ctx context.Context, t *testing.T, username string, balance int64) *entity.User {
	t.Helper()

	user, err := that.auth.Register(ctx, username, username+"@example.com", "password1")
	require.NoError(t, err)

	if balance > 0 {
		err = runInTx(ctx, that.db, func(tx *sql.Tx) error {
			return that.ledger.Credit(ctx, tx, user.ID, balance)
		})
		require.NoError(t, err)
		user.Balance = balance
	}

	return user
}

func (that *fixture) balance(ctx context.Context, t *testing.T, userID string) int64 {
	t.Helper()

	user, err := that.userRepo.GetByID(ctx, userID)
	require.NoError(t, err)

	return user.Balance
}

// startedMatch - creates a lobby, accepts it and flips the match to
// ongoing, the way two connected players would.
func (that *fixture) startedMatch(ctx context.Context, t *testing.T, creator, challenger *entity.User, bet int64) *entity.Match {
	t.Helper()

	lobby, err := that.lobbyService.Create(ctx, creator.ID, bet, entity.LobbyPublic)
	require.NoError(t, err)

	match, err := that.matchService.CreateFromChallenge(ctx, lobby.ID, challenger.ID)
	require.NoError(t, err)

	match, err = that.matchService.Start(ctx, match.ID)
	require.NoError(t, err)
	require.True(t, match.IsOngoing())

	return match
}

func TestMatchService_CreateFromChallenge(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)
	outsider := f.registerUser(ctx, t, "carol", 10)

	lobby, err := f.lobbyService.Create(ctx, creator.ID, 500, entity.LobbyPublic)
	require.NoError(t, err)
	require.Equal(t, int64(500), f.balance(ctx, t, creator.ID))

	t.Run("Accept_OwnLobby", func(t *testing.T) {
		_, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, creator.ID)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrOwnLobby)
	})

	t.Run("Accept_InsufficientFunds", func(t *testing.T) {
		// When: a challenger who cannot cover the bet accepts
		_, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, outsider.ID)

		// Then: the accept fails and the lobby stays on the board
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

		reloaded, err := f.lobbyRepo.GetByID(ctx, lobby.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.IsWaiting())
	})

	t.Run("Accept_Success", func(t *testing.T) {
		// When: a funded challenger accepts
		match, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, challenger.ID)

		// Then: both stakes are escrowed, the creator plays white and moves
		// first, and the match waits for its players
		require.NoError(t, err)
		assert.Equal(t, creator.ID, match.WhiteID)
		assert.Equal(t, challenger.ID, match.BlackID)
		assert.Equal(t, creator.ID, match.Turn)
		assert.True(t, match.IsWaitingPlayers())
		assert.Equal(t, int64(500), f.balance(ctx, t, challenger.ID))

		reloaded, err := f.lobbyRepo.GetByID(ctx, lobby.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.LobbyStatusPlaying, reloaded.Status)
	})

	t.Run("Accept_NoLongerWaiting", func(t *testing.T) {
		// When: the same lobby is accepted a second time
		_, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, challenger.ID)

		// Then: an ErrLobbyUnavailable error should be returned and the
		// challenger is not debited again
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrLobbyUnavailable)
		assert.Equal(t, int64(500), f.balance(ctx, t, challenger.ID))
	})
}

func TestMatchService_ApplyMove(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)

	match := f.startedMatch(ctx, t, creator, challenger, 500)

	opening := draughts.Move{
		From: draughts.Square{Row: 5, Col: 0},
		To:   draughts.Square{Row: 4, Col: 1},
	}

	t.Run("ApplyMove_NotYourTurn", func(t *testing.T) {
		// When: black moves while it is white's turn
		_, err := f.matchService.ApplyMove(ctx, match.ID, challenger.ID, draughts.Move{
			From: draughts.Square{Row: 2, Col: 1},
			To:   draughts.Square{Row: 3, Col: 2},
		})

		// Then: an ErrNotYourTurn error should be returned and the board
		// is unchanged
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)

		reloaded, err := f.matchService.Reload(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, draughts.NewBoard(), reloaded.Board)
		assert.Empty(t, reloaded.MoveLog)
	})

	t.Run("ApplyMove_Outsider", func(t *testing.T) {
		stranger := f.registerUser(ctx, t, "mallory", 0)

		_, err := f.matchService.ApplyMove(ctx, match.ID, stranger.ID, opening)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrNotParticipant)
	})

	t.Run("ApplyMove_Illegal", func(t *testing.T) {
		// When: white tries a two-square slide with a man
		_, err := f.matchService.ApplyMove(ctx, match.ID, creator.ID, draughts.Move{
			From: draughts.Square{Row: 5, Col: 0},
			To:   draughts.Square{Row: 3, Col: 2},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrIllegalMove)
	})

	t.Run("ApplyMove_Success", func(t *testing.T) {
		// When: white plays an opening slide
		outcome, err := f.matchService.ApplyMove(ctx, match.ID, creator.ID, opening)

		// Then: the move is applied, logged and the turn passes to black
		require.NoError(t, err)
		assert.False(t, outcome.Finished)
		assert.True(t, opening.SameEndpoints(outcome.Applied))
		assert.Equal(t, challenger.ID, outcome.Match.Turn)

		reloaded, err := f.matchService.Reload(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.MoveLog, 1)
		assert.Equal(t, creator.ID, reloaded.MoveLog[0].UserID)
		assert.Equal(t, draughts.Piece{}, reloaded.Board.At(opening.From))
	})
}

func TestMatchService_ApplyMove_WinsByCapture(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)

	match := f.startedMatch(ctx, t, creator, challenger, 500)

	// Given: black is down to one man and white can capture it
	board := draughts.Board{}
	board[5][2] = draughts.Piece{Color: draughts.ColorWhite, Rank: draughts.RankMan}
	board[4][3] = draughts.Piece{Color: draughts.ColorBlack, Rank: draughts.RankMan}

	match.Board = board
	match.Turn = creator.ID
	require.NoError(t, f.matchRepo.SaveProgress(ctx, match))
	require.NoError(t, f.liveRepo.Save(ctx, match))

	// When: white takes the last black piece
	outcome, err := f.matchService.ApplyMove(ctx, match.ID, creator.ID, draughts.Move{
		From: draughts.Square{Row: 5, Col: 2},
		To:   draughts.Square{Row: 3, Col: 4},
	})

	// Then: the match is finished and settled: pot 1000, fee 100, prize 900
	require.NoError(t, err)
	require.True(t, outcome.Finished)
	assert.Equal(t, entity.MatchStatusFinished, outcome.Match.Status)
	assert.Equal(t, entity.EndReasonNoPieces, outcome.Match.EndReason)
	assert.Equal(t, creator.ID, outcome.Match.WinnerID)
	assert.Equal(t, int64(100), outcome.Match.PlatformFee)

	assert.Equal(t, int64(1400), f.balance(ctx, t, creator.ID))
	assert.Equal(t, int64(500), f.balance(ctx, t, challenger.ID))

	winner, err := f.userRepo.GetByID(ctx, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, int64(400), winner.TotalWinnings)

	loser, err := f.userRepo.GetByID(ctx, challenger.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loser.Losses)

	// And: a move after the end is rejected
	_, err = f.matchService.ApplyMove(ctx, match.ID, challenger.ID, draughts.Move{
		From: draughts.Square{Row: 2, Col: 1},
		To:   draughts.Square{Row: 3, Col: 2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrMatchFinished)
}

func TestMatchService_Resign(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)

	match := f.startedMatch(ctx, t, creator, challenger, 100)

	// When: the creator resigns
	finished, err := f.matchService.Resign(ctx, match.ID, creator.ID)

	// Then: the challenger wins the pot minus the fee: pot 200, fee 20,
	// prize 180, net winnings 80
	require.NoError(t, err)
	assert.True(t, finished.IsFinished())
	assert.Equal(t, entity.EndReasonResignation, finished.EndReason)
	assert.Equal(t, challenger.ID, finished.WinnerID)
	assert.Equal(t, creator.ID, finished.LoserID)
	assert.Equal(t, int64(20), finished.PlatformFee)

	assert.Equal(t, int64(900), f.balance(ctx, t, creator.ID))
	assert.Equal(t, int64(1080), f.balance(ctx, t, challenger.ID))

	winner, err := f.userRepo.GetByID(ctx, challenger.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, int64(80), winner.TotalWinnings)

	// And: resigning again hits the terminal guard
	_, err = f.matchService.Resign(ctx, match.ID, challenger.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrMatchFinished)
}

func TestMatchService_Resign_BeforeStart(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)

	lobby, err := f.lobbyService.Create(ctx, creator.ID, 500, entity.LobbyPublic)
	require.NoError(t, err)
	match, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, challenger.ID)
	require.NoError(t, err)

	// When: a player resigns while the match is still waiting for players
	_, err = f.matchService.Resign(ctx, match.ID, creator.ID)

	// Then: an ErrMatchNotOngoing error should be returned
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrMatchNotOngoing)
}

func TestMatchService_CancelByTimeout(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 50)
	challenger := f.registerUser(ctx, t, "bob", 50)

	lobby, err := f.lobbyService.Create(ctx, creator.ID, 50, entity.LobbyPublic)
	require.NoError(t, err)
	match, err := f.matchService.CreateFromChallenge(ctx, lobby.ID, challenger.ID)
	require.NoError(t, err)

	require.Equal(t, int64(0), f.balance(ctx, t, creator.ID))
	require.Equal(t, int64(0), f.balance(ctx, t, challenger.ID))

	// When: the waiting match times out
	cancelled, err := f.matchService.CancelByTimeout(ctx, match.ID)

	// Then: both players get exactly their stake back and the match is
	// cancelled
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())
	assert.Equal(t, entity.EndReasonTimeout, cancelled.EndReason)
	assert.Equal(t, int64(50), f.balance(ctx, t, creator.ID))
	assert.Equal(t, int64(50), f.balance(ctx, t, challenger.ID))

	// And: a second cancel is a no-op, not a second refund
	again, err := f.matchService.CancelByTimeout(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, again.IsCancelled())
	assert.Equal(t, int64(50), f.balance(ctx, t, creator.ID))
	assert.Equal(t, int64(50), f.balance(ctx, t, challenger.ID))
}

func TestMatchService_Start_Idempotent(t *testing.T) {
	ctx, f := newFixture(t)

	creator := f.registerUser(ctx, t, "alice", 1000)
	challenger := f.registerUser(ctx, t, "bob", 1000)

	match := f.startedMatch(ctx, t, creator, challenger, 500)

	// When: Start is called again on an ongoing match
	again, err := f.matchService.Start(ctx, match.ID)

	// Then: the match stays ongoing
	require.NoError(t, err)
	assert.True(t, again.IsOngoing())
}
