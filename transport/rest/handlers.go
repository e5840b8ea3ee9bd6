package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/entity"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleRegister(ctx echo.Context) error {
	log := that.logger.With("method", "handleRegister")

	var req registerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}

	token, user, err := that.user.Register(ctx.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		log.Error("failed to register", "error", err)
		return respondError(ctx, err)
	}

	log.Info("user registered", "userID", user.ID, "username", user.Username)

	return ctx.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

func (that *Server) handleLogin(ctx echo.Context) error {
	log := that.logger.With("method", "handleLogin")

	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}

	token, user, err := that.user.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		log.Error("failed to login", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func (that *Server) handleLobbies(ctx echo.Context) error {
	log := that.logger.With("method", "handleLobbies")

	lobbies, err := that.user.Lobbies(ctx.Request().Context())
	if err != nil {
		log.Error("failed to list lobbies", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, lobbies)
}

func (that *Server) handleProfile(ctx echo.Context) error {
	log := that.logger.With("method", "handleProfile")

	user, err := that.user.Profile(ctx.Request().Context(), callerID(ctx))
	if err != nil {
		log.Error("failed to get profile", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, user)
}

// handleMatch - full state reload for a participant who missed live
// events.
func (that *Server) handleMatch(ctx echo.Context) error {
	log := that.logger.With("method", "handleMatch")

	match, err := that.user.MatchState(ctx.Request().Context(), ctx.Param("id"), callerID(ctx))
	if err != nil {
		log.Error("failed to load match", "matchID", ctx.Param("id"), "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, match)
}

func (that *Server) handleDeposit(ctx echo.Context) error {
	log := that.logger.With("method", "handleDeposit")

	var req amountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}

	request, err := that.user.RequestDeposit(ctx.Request().Context(), callerID(ctx), req.Amount)
	if err != nil {
		log.Error("failed to request deposit", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, request)
}

func (that *Server) handleWithdrawal(ctx echo.Context) error {
	log := that.logger.With("method", "handleWithdrawal")

	var req amountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}

	request, err := that.user.RequestWithdrawal(ctx.Request().Context(), callerID(ctx), req.Amount)
	if err != nil {
		log.Error("failed to request withdrawal", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, request)
}

func (that *Server) handleWalletRequests(ctx echo.Context) error {
	log := that.logger.With("method", "handleWalletRequests")

	requests, err := that.user.WalletRequests(ctx.Request().Context(), callerID(ctx))
	if err != nil {
		log.Error("failed to list wallet requests", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, requests)
}

func respondError(ctx echo.Context, err error) error {
	status, message := httpStatus(err)
	return ctx.JSON(status, errorResponse{Error: message})
}

// httpStatus - domain errors map to client statuses with their own text,
// everything else is a 500 with a generic one.
func httpStatus(err error) (int, string) {
	for _, m := range []struct {
		sentinel error
		status   int
	}{
		{apperror.ErrValidation, http.StatusBadRequest},
		{apperror.ErrBetTooHigh, http.StatusBadRequest},
		{apperror.ErrAmountOutOfBounds, http.StatusBadRequest},
		{apperror.ErrInsufficientFunds, http.StatusBadRequest},
		{apperror.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperror.ErrNotParticipant, http.StatusForbidden},
		{apperror.ErrNotFound, http.StatusNotFound},
		{apperror.ErrUserExists, http.StatusConflict},
		{apperror.ErrLobbyUnavailable, http.StatusConflict},
		{apperror.ErrOwnLobby, http.StatusConflict},
		{apperror.ErrMatchNotOngoing, http.StatusConflict},
		{apperror.ErrMatchFinished, http.StatusConflict},
		{apperror.ErrNotYourTurn, http.StatusConflict},
		{apperror.ErrIllegalMove, http.StatusConflict},
	} {
		if errors.Is(err, m.sentinel) {
			return m.status, m.sentinel.Error()
		}
	}

	return http.StatusInternalServerError, "internal error"
}
