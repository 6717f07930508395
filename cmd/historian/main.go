// cmd/historian drains the Redis action queue into the game_actions table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/jason-s-yu/mickarin/internal/config"
	"github.com/jason-s-yu/mickarin/internal/database"
	"github.com/jason-s-yu/mickarin/internal/historian"
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
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required by the historian")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.WithError(err).Fatal("failed to prepare schema")
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	sink := func(ctx context.Context, records []cache.GameActionRecord) error {
		return database.InsertGameActions(ctx, pool, records)
	}
	svc := historian.New(cache.NewQueueReader(rdb, cfg.QueueName), sink, cfg.HistorianBatchSize, cfg.HistorianFlush, logger)

	logger.WithFields(logrus.Fields{"queue": cfg.QueueName, "batch": cfg.HistorianBatchSize}).Info("historian listening")
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}
