package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/damasarena/damas-backend/internal/entity"
)

// contextUserID - echo context key the auth middleware stores the caller
// under.
const contextUserID = "userID"

type userUseCase interface {
	Register(ctx context.Context, username, email, password string) (string, *entity.User, error)
	Login(ctx context.Context, email, password string) (string, *entity.User, error)
	VerifyToken(token string) (string, error)

	Profile(ctx context.Context, userID string) (*entity.User, error)
	Lobbies(ctx context.Context) ([]*entity.Lobby, error)
	MatchState(ctx context.Context, matchID, userID string) (*entity.Match, error)

	RequestDeposit(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64) (*entity.WalletRequest, error)
	WalletRequests(ctx context.Context, userID string) ([]*entity.WalletRequest, error)
}

type Server struct {
	logger *slog.Logger
	user   userUseCase
}

func New(logger *slog.Logger, user userUseCase) *Server {
	return &Server{
		logger: logger,
		user:   user,
	}
}

// Start - starts the HTTP server.
func (that *Server) Start(ctx context.Context, port string) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	that.routes(e)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
	}()

	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) routes(e *echo.Echo) {
	e.GET("/ping", that.handlePing)

	api := e.Group("/api")
	api.POST("/auth/register", that.handleRegister)
	api.POST("/auth/login", that.handleLogin)
	api.GET("/lobbies", that.handleLobbies)

	authed := api.Group("", that.requireAuth)
	authed.GET("/users/me", that.handleProfile)
	authed.GET("/matches/:id", that.handleMatch)
	authed.POST("/wallet/deposits", that.handleDeposit)
	authed.POST("/wallet/withdrawals", that.handleWithdrawal)
	authed.GET("/wallet/requests", that.handleWalletRequests)
}

// requireAuth - resolves the bearer token to a user id before the handler
// runs.
func (that *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return ctx.JSON(http.StatusUnauthorized, errorResponse{Error: "missing token"})
		}

		userID, err := that.user.VerifyToken(token)
		if err != nil {
			return ctx.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		}

		ctx.Set(contextUserID, userID)

		return next(ctx)
	}
}

func callerID(ctx echo.Context) string {
	userID, _ := ctx.Get(contextUserID).(string)
	return userID
}
