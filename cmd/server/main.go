// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/mickarin/internal/auth"
	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/jason-s-yu/mickarin/internal/config"
	"github.com/jason-s-yu/mickarin/internal/database"
	"github.com/jason-s-yu/mickarin/internal/docstore"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open game store")
	}
	defer closeStore()

	rules := game.Rules{TurnTimeout: cfg.TurnTimeout, RevealDelay: cfg.RevealDelay}
	if err := rules.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid game rules")
	}

	var issuer *auth.Issuer
	if cfg.PrivateKeyPath != "" {
		issuer, err = auth.NewIssuerFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpire)
	} else {
		issuer, err = auth.NewIssuer(cfg.TokenExpire)
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to set up session tokens")
	}

	hub := handlers.NewHub(logger)
	opts := []game.Option{game.WithRules(rules), game.WithSessionIssuer(issuer)}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		opts = append(opts, game.WithActionPublisher(cache.NewActionPublisher(rdb, cfg.QueueName)))
		logger.WithField("queue", cfg.QueueName).Info("action log enabled")
	}

	mgr := game.NewManager(store, hub.Send, logger, opts...)
	srv := handlers.NewServer(mgr, hub, logger, handlers.WithPublicURL(cfg.PublicURL))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr(), "store": cfg.StoreDriver}).Info("listening")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("failed to serve")
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	mgr.Shutdown()
	logger.Info("server stopped")
}

// openStore builds the game store selected by STORE_DRIVER. The returned
// func releases its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (game.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using postgres game store")
		return database.NewGameStore(pool), pool.Close, nil

	case config.StoreMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.NewStore(client, cfg.MongoDB)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.WithField("db", cfg.MongoDB).Info("using mongo game store")
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	}

	logger.Warn("using in-memory game store; games are lost on restart")
	return game.NewMemoryStore(), func() {}, nil
}
