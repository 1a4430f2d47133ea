package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"divvy/internal/amqp"
	"divvy/internal/cache"
	"divvy/internal/config"
	"divvy/internal/core"
	apphttp "divvy/internal/http"
	"divvy/internal/log"
	"divvy/internal/services"
	"divvy/internal/store"
	"divvy/internal/store/memory"
	"divvy/internal/store/sqlite"
)

func main() {
	// Load .env for local development, ignore errors elsewhere.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		expenseStore store.ExpenseStore
		groupStore   store.GroupStore
		shareReader  store.ShareReader
		ready        func() error
		closeStore   func() error
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		expenseStore, groupStore, shareReader = repo, repo, repo
		ready = repo.Ping
		closeStore = repo.Close
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		st := memory.New()
		expenseStore, groupStore, shareReader = st, st, st
		closeStore = st.Close
		logger.Info("Initialized memory backend")
	}
	defer closeStore()

	// AMQP is optional; without it expense events are skipped.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Warn("AMQP disabled, expense events will not be published")
	}

	balanceCache := cache.NewLRUCache[core.GroupBalance](cfg.BalanceCacheSize, cfg.BalanceCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(balanceCache)
	cacheManager.StartCleanup(cfg.BalanceCacheTTL)
	defer cacheManager.Stop()

	expenses := services.NewExpenseService(expenseStore, groupStore, publisher)
	groups := services.NewGroupService(groupStore)
	balances := services.NewBalanceService(shareReader, balanceCache)

	srv := apphttp.NewServer(":"+cfg.Port, expenses, groups, balances, ready)
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting divvy server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
