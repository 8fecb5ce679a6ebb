package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/api"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/auth"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/config"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/database"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/logger"
)

var log = logger.New("server")

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Configure(cfg.Server.Environment, cfg.LogLevel)
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Error("Server stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	log.Info("Server exited properly")
}

func run(cfg *config.Config) error {
	pool := database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := database.NewDatabase(database.DatabaseType(cfg.Database.Type), cfg.Database.URL, pool)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to %s database successfully", cfg.Database.Type)

	if migrator, ok := db.(database.Migrator); ok && cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := migrator.Migrate(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	tokens, closeSessions, err := newTokenManager(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	opts := api.Options{
		ExposeErrors:     !cfg.IsProduction(),
		ValidateTokens:   cfg.Auth.TokenMode == config.TokenModeJWT,
		StrictChatAccess: cfg.Chats.StrictAccess,
	}

	router := api.NewRouter(api.Functions{
		Auth:  api.NewAuthHandler(db, tokens, opts),
		Chats: api.NewChatHandler(db, opts),
		Users: api.NewUserHandler(db, opts),
	}, db)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	// Give the server 5 seconds to finish processing remaining requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// newTokenManager signs tokens with TOKEN_SECRET, or with a per-process
// random key when it is unset. Issued tokens are recorded in Redis when
// REDIS_ADDR is configured.
func newTokenManager(cfg *config.Config) (*auth.TokenManager, func(), error) {
	key := []byte(cfg.Auth.TokenSecret)
	if len(key) == 0 {
		var err error
		if key, err = auth.RandomKey(); err != nil {
			return nil, nil, err
		}
		log.Warn("TOKEN_SECRET not set, tokens will not survive a restart")
	}

	if cfg.Redis.Addr == "" {
		return auth.NewTokenManager(key, cfg.Auth.TokenTTL, nil), func() {}, nil
	}

	store := auth.NewRedisSessionStore(auth.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info("Session store connected at %s", cfg.Redis.Addr)

	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close session store: %v", err)
		}
	}
	return auth.NewTokenManager(key, cfg.Auth.TokenTTL, store), closeStore, nil
}
