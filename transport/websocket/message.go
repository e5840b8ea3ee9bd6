package websocket

import (
	"encoding/json"

	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
)

// Client actions.
const (
	actionLobbyCreate = "lobby:create"
	actionLobbyCancel = "lobby:cancel"
	actionLobbyAccept = "lobby:accept"
	actionGameJoin    = "game:join"
	actionGameMove    = "game:move"
	actionGameResign  = "game:resign"
)

// Server events.
const (
	eventNewLobbyRoom      = "new_lobby_room"
	eventLobbyRoomRemoved  = "lobby_room_removed"
	eventChallengeAccepted = "gameChallengeAccepted"
	eventMoveMade          = "moveMade"
	eventGameOver          = "gameOver"
	eventGameCancelled     = "gameCancelled"
	eventGameError         = "gameError"
	eventRoomStatus        = "roomStatus"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createLobbyPayload struct {
	BetAmount  int64  `json:"bet_amount"`
	Visibility string `json:"visibility"`
}

type cancelLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
}

type acceptLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
	Code    string `json:"code"`
}

type matchRefPayload struct {
	MatchID string `json:"match_id"`
}

type movePayload struct {
	MatchID string            `json:"match_id"`
	From    draughts.Square   `json:"from"`
	To      draughts.Square   `json:"to"`
	Path    []draughts.Square `json:"path,omitempty"`
}

type lobbyRemovedPayload struct {
	LobbyID string `json:"lobby_id"`
}

type moveMadePayload struct {
	Board      draughts.Board     `json:"board"`
	LastMove   *entity.MoveRecord `json:"last_move"`
	NextPlayer string             `json:"next_player"`
}

type gameOverPayload struct {
	WinnerName  string `json:"winner_name"`
	LoserName   string `json:"loser_name"`
	Reason      string `json:"reason"`
	Prize       int64  `json:"prize"`
	PlatformFee int64  `json:"platform_fee"`
}

type gameCancelledPayload struct {
	Reason string `json:"reason"`
}

type gameErrorPayload struct {
	Message string `json:"message"`
}

type roomStatusPayload struct {
	MatchID string   `json:"match_id"`
	Players []string `json:"players"`
	Status  string   `json:"status"`
}

// newMessage - envelope with an already marshaled payload.
func newMessage(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: raw})
}

func mustMessage(action string, payload any) []byte {
	b, err := newMessage(action, payload)
	if err != nil {
		panic(err)
	}
	return b
}
