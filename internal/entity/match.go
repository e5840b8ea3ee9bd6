package entity

import (
	"fmt"
	"time"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
)

const (
	MatchStatusWaitingPlayers = "waiting_players"
	MatchStatusOngoing        = "ongoing"
	MatchStatusFinished       = "finished"
	MatchStatusCancelled      = "cancelled"
)

// End reasons carried on terminal matches and in gameOver payloads.
const (
	EndReasonCheckmate   = "checkmate"
	EndReasonNoPieces    = "no_pieces"
	EndReasonResignation = "resignation"
	EndReasonTimeout     = "timeout"
)

// MoveRecord - one applied move in the match log.
type MoveRecord struct {
	UserID   string        `json:"user_id"`
	Move     draughts.Move `json:"move"`
	PlayedAt time.Time     `json:"played_at"`
}

// Match - one wagered match between two players. The creator always takes
// white and moves first; the challenger takes black. Money fields are in
// cents.
type Match struct {
	ID          string         `json:"id"`
	LobbyID     string         `json:"lobby_id"`
	WhiteID     string         `json:"white_id"`
	BlackID     string         `json:"black_id"`
	Board       draughts.Board `json:"board"`
	Turn        string         `json:"turn"`
	Status      string         `json:"status"`
	BetAmount   int64          `json:"bet_amount"`
	PlatformFee int64          `json:"platform_fee"`
	WinnerID    string         `json:"winner_id,omitempty"`
	LoserID     string         `json:"loser_id,omitempty"`
	EndReason   string         `json:"end_reason,omitempty"`
	MoveLog     []MoveRecord   `json:"move_log"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewMatch - a match fresh out of an accepted lobby: starting position,
// creator is white, creator moves first, both stakes already escrowed.
func NewMatch(id, lobbyID, creatorID, challengerID string, betAmount int64) *Match {
	now := time.Now().UTC()

	return &Match{
		ID:        id,
		LobbyID:   lobbyID,
		WhiteID:   creatorID,
		BlackID:   challengerID,
		Board:     draughts.NewBoard(),
		Turn:      creatorID,
		Status:    MatchStatusWaitingPlayers,
		BetAmount: betAmount,
		MoveLog:   []MoveRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (that *Match) IsWaitingPlayers() bool {
	return that.Status == MatchStatusWaitingPlayers
}

func (that *Match) IsOngoing() bool {
	return that.Status == MatchStatusOngoing
}

func (that *Match) IsFinished() bool {
	return that.Status == MatchStatusFinished
}

func (that *Match) IsCancelled() bool {
	return that.Status == MatchStatusCancelled
}

// IsTerminal - finished and cancelled absorb; no transition ever leaves them.
func (that *Match) IsTerminal() bool {
	return that.IsFinished() || that.IsCancelled()
}

// ConfirmOngoing - guards the move operations.
func (that *Match) ConfirmOngoing() error {
	switch that.Status {
	case MatchStatusOngoing:
		return nil
	case MatchStatusFinished, MatchStatusCancelled:
		return apperror.ErrMatchFinished
	case MatchStatusWaitingPlayers:
		return apperror.ErrMatchNotOngoing
	default:
		return fmt.Errorf("%w: unknown status %q", apperror.ErrMatchNotOngoing, that.Status)
	}
}

func (that *Match) IsParticipant(userID string) bool {
	return userID == that.WhiteID || userID == that.BlackID
}

// ColorOf - the color a participant plays. ColorNone for outsiders.
func (that *Match) ColorOf(userID string) draughts.Color {
	switch userID {
	case that.WhiteID:
		return draughts.ColorWhite
	case that.BlackID:
		return draughts.ColorBlack
	default:
		return draughts.ColorNone
	}
}

// OpponentOf - the other participant's id.
func (that *Match) OpponentOf(userID string) string {
	if userID == that.WhiteID {
		return that.BlackID
	}
	return that.WhiteID
}

func (that *Match) PlayerIDs() [2]string {
	return [2]string{that.WhiteID, that.BlackID}
}

// LastMove - the most recent record, nil before the first move.
func (that *Match) LastMove() *MoveRecord {
	if len(that.MoveLog) == 0 {
		return nil
	}
	return &that.MoveLog[len(that.MoveLog)-1]
}
