package apperror

import "errors"

var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountOutOfBounds = errors.New("amount is out of bounds")

	ErrLobbyUnavailable = errors.New("lobby is not available")
	ErrBetTooHigh       = errors.New("bet exceeds the maximum")
	ErrOwnLobby         = errors.New("cannot accept your own lobby")

	ErrMatchNotOngoing = errors.New("match is not ongoing")
	ErrMatchFinished   = errors.New("match is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrNotParticipant  = errors.New("not a participant of this match")
	ErrIllegalMove     = errors.New("illegal move")
)
