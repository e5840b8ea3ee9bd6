package entity

import "time"

const (
	LobbyStatusWaiting   = "waiting"
	LobbyStatusPlaying   = "playing"
	LobbyStatusCancelled = "cancelled"
)

const (
	LobbyPublic  = "public"
	LobbyPrivate = "private"
)

// Lobby - an open challenge. The creator's stake is escrowed the moment
// the lobby is created and released by acceptance (into the match pot),
// cancellation, or expiry. A lobby turns playing exactly once, atomically
// with the creation of its match.
type Lobby struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	CreatorName string    `json:"creator_name,omitempty"`
	BetAmount   int64     `json:"bet_amount"`
	Visibility  string    `json:"visibility"`
	Code        string    `json:"code,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (that *Lobby) IsWaiting() bool {
	return that.Status == LobbyStatusWaiting
}

func (that *Lobby) IsPrivate() bool {
	return that.Visibility == LobbyPrivate
}
