package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amorozov/userhub/internal/db"
	"github.com/amorozov/userhub/internal/handlers"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/repository/postgres"
	"github.com/amorozov/userhub/internal/service/asset"
	"github.com/amorozov/userhub/internal/service/asset/s3store"
	"github.com/amorozov/userhub/internal/service/auth"
	"github.com/amorozov/userhub/internal/service/auth/tokenmanager"
	"github.com/amorozov/userhub/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	userRepo := &postgres.UserRepo{DB: pool}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, userRepo)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:  c.S3Endpoint,
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating asset store. Err: %w", err)
	}

	assetService, err := asset.NewService(store, userRepo, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating asset service. Err: %w", err)
	}

	userService, err := user.NewService(userRepo, assetService, nil)
	if err != nil {
		return nil, fmt.Errorf("error while creating user service. Err: %w", err)
	}

	if c.StagingDir != "" {
		if err := os.MkdirAll(c.StagingDir, 0o755); err != nil {
			return nil, fmt.Errorf("error while creating staging dir. Err: %w", err)
		}
	}

	mux := handlers.NewRouter(
		authService,
		userService,
		assetService,
		c.StagingDir,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
