package entity

import "time"

// User - a registered player. Balance and the win/loss counters are
// mutated only through ledger operations inside database transactions;
// TotalWinnings accumulates net profit (prize minus own stake) and can
// go negative when the platform fee outweighs a win.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Balance       int64     `json:"balance"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	TotalWinnings int64     `json:"total_winnings"`
	CreatedAt     time.Time `json:"created_at"`
}
