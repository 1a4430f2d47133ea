package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"divvy/internal/amqp"
	"divvy/internal/config"
	"divvy/internal/ledger"
	lgoogle "divvy/internal/ledger/google"
	"divvy/internal/log"
	"divvy/internal/services"
	"divvy/internal/store/memory"
	"divvy/internal/store/sqlite"
	"divvy/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent("worker")
	log.SetDefault(logger)

	logger.Info("Starting divvy-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var w *worker.BalanceWorker
	var recurring *services.RecurringProcessor

	// AMQP client for consuming expense events (optional).
	var consumer worker.EventConsumer
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
		publisher = client
	} else {
		logger.Warn("AMQP disabled, relying on periodic passes only")
	}

	// Google Sheets ledger mirror (optional).
	var mirror ledger.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := lgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Ledger mirror disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		recurring = services.NewRecurringProcessor(repo, repo, publisher)
		w = worker.NewBalanceWorker(repo, repo, repo, recurring, mirror, cfg.WorkerBatchSize)
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		// A memory backend has no shared state with the server, only
		// useful for local smoke runs.
		st := memory.New()
		defer st.Close()
		recurring = services.NewRecurringProcessor(st, st, publisher)
		w = worker.NewBalanceWorker(st, st, st, recurring, mirror, cfg.WorkerBatchSize)
		logger.Warn("Initialized memory backend, worker state is process-local")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Worker running",
		"snapshot_interval", cfg.SnapshotInterval.String(),
		"batch_size", cfg.WorkerBatchSize)
	if err := w.Run(ctx, consumer, cfg.SnapshotInterval); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
