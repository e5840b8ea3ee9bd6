package entity

import "time"

const (
	WalletRequestDeposit    = "deposit"
	WalletRequestWithdrawal = "withdrawal"

	WalletRequestPending = "pending"
)

// WalletRequest - an intake row for a deposit or withdrawal. The balance
// itself is untouched until an operator settles the request off-line.
type WalletRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
