package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/export"
	exportgoogle "saldo/internal/export/google"
	exportmem "saldo/internal/export/memory"
	applog "saldo/internal/log"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel, cfg.LogFormat, applog.ComponentWorker)

	logger.Info("Starting saldo-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// SQLite store holds the settlements pending export
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Report destination: Google Sheets when configured, otherwise an
	// in-process recorder so the pending queue still drains locally.
	var writer export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := exportgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = exportmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory recorder")
	}

	// AMQP client for consuming sync messages
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, writer, cfg.SyncBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// On startup, process any pending settlements that might have been missed
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)

	// Consume sync messages from AMQP
	g.Go(func() error {
		err := amqpClient.ConsumeSettlementSync(gctx, func(msg *amqp.SettlementSyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic backup pass for any missed messages
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.ProcessPendingSettlements(gctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
