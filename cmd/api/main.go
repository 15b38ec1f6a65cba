package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/bootstrap"
	"github.com/nestfeed/client/internal/config"
	"github.com/nestfeed/client/internal/handler"
	"github.com/nestfeed/client/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		panic("failed to load configuration: " + err.Error())
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	core, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize client core", zap.Error(err))
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Warn("failed to release client core", zap.Error(err))
		}
	}()

	logger.Info("client core initialized",
		zap.String("api", cfg.API.BaseURL),
		zap.String("relay", cfg.Relay.URL),
		zap.String("sessionBackend", string(cfg.Session.Backend)))

	router := handler.NewRouter(handler.Services{
		Sessions:      core.Sessions,
		Accounts:      core.Accounts,
		Feed:          core.Feed,
		Notifications: core.Notifications,
		Friends:       core.Friends,
		Chat:          core.Chat,
	}, cfg.Server.AllowedOrigins, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := newServer(serverCfg.Addr, router)

	logger.Info("nestfeed gateway listening", zap.String("addr", srv.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

// newServer builds the gateway server. Shutdown cancels every request context,
// which is the only way long-lived streams learn about it.
func newServer(addr string, router http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
