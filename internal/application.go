package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/damasarena/damas-backend/internal/config"
	"github.com/damasarena/damas-backend/internal/matchlock"
	"github.com/damasarena/damas-backend/internal/repository"
	"github.com/damasarena/damas-backend/internal/repository/storage"
	"github.com/damasarena/damas-backend/internal/service"
	"github.com/damasarena/damas-backend/internal/usecase"
	"github.com/damasarena/damas-backend/transport/rest"
	"github.com/damasarena/damas-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedis(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	pgStorage, err := storage.NewPostgres(conf.Postgres.GetDSN())
	if err != nil {
		return fmt.Errorf("could not connect to postgres storage: %w", err)
	}

	defer func() {
		if err = pgStorage.Close(); err != nil {
			log.Error("could not close postgres storage", "error", err)
		}
	}()

	if err = pgStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not apply database schema: %w", err)
	}

	db := pgStorage.Connection

	userRepo := repository.NewUserRepository(db)
	lobbyRepo := repository.NewLobbyRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	ledgerRepo := repository.NewLedgerRepository()
	liveMatchRepo := repository.NewLiveMatchRepository(redisStorage.Connection)
	lobbyIndexRepo := repository.NewLobbyIndexRepository(redisStorage.Connection)

	authService := service.NewAuthService(userRepo, conf.JWTSecretKey, conf.Game.StartingBalance)
	userService := service.NewUserService(userRepo)
	walletService := service.NewWalletService(walletRepo, userRepo, conf.Wallet)
	lobbyService := service.NewLobbyService(logger, db, lobbyRepo, ledgerRepo, lobbyIndexRepo, conf.Game.MaxBet)
	settlementService := service.NewSettlementService(logger, ledgerRepo, conf.Game.PlatformFeePercent)
	matchService := service.NewMatchService(
		logger, db,
		matchRepo, lobbyRepo, liveMatchRepo, ledgerRepo,
		settlementService, lobbyIndexRepo,
		matchlock.NewRegistry(),
	)

	gameUseCase := usecase.NewGameUseCase(lobbyService, matchService, userService)
	userUseCase := usecase.NewUserUseCase(authService, userService, lobbyService, matchService, walletService)

	wsServer := websocket.New(logger, gameUseCase, authService, conf.Game.AbandonTimeout)

	janitor := service.NewJanitor(
		logger,
		lobbyRepo, matchRepo,
		lobbyService, matchService,
		conf.Game.LobbyTimeout, conf.Game.JoinTimeout, conf.Game.SweepInterval,
	)
	janitor.SetNotifier(wsServer)
	go janitor.Run(ctx)

	restServer := rest.New(logger, userUseCase)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
