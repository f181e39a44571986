package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"juku-import/internal/backend"
	"juku-import/internal/config"
	"juku-import/internal/db"
	"juku-import/internal/imports"
	"juku-import/internal/logger"
	"juku-import/internal/queue"
	"juku-import/internal/report"
	"juku-import/internal/session"
	"juku-import/internal/storage"
	"juku-import/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, "submit-worker")
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting submit worker")

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	svc := imports.NewService(
		session.NewRedisStore(redisClient.Client(), cfg.Session),
		store,
		backend.NewClient(cfg),
		queue.NewProducer(redisClient, cfg.Redis),
		db.NewRepository(database),
		imports.Options{
			Limits:       report.LimitsFromConfig(cfg.Report),
			PreferServer: cfg.Template.PreferServer,
		},
	)

	submitWorker := worker.NewSubmitWorker(svc, queue.NewConsumer(redisClient, cfg.Redis), cfg.Workers.Submit.Count)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := submitWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Submit worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down submit worker...")

	cancel()
	submitWorker.Stop()

	log.Info().Msg("Submit worker exited")
}
