// Command fondi-worker consumes ledger change notifications and keeps the
// Google Sheets month reports in sync with the database.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fondi/internal/amqp"
	"fondi/internal/cli"
	"fondi/internal/services"
	gsheet "fondi/internal/sheets/google"
	"fondi/internal/worker"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if !cfg.SheetsConfigured() {
		logger.Error("Google Sheets export is not configured, set the GOOGLE_* variables")
		os.Exit(1)
	}

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := gsheet.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(services.NewBudgetService(repo), writer)

	shutdownCtx, done := cli.GracefulShutdown(logger, 10*time.Second, cancel)

	logger.Info("Starting fondi-worker", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeLedgerChanges(ctx, func(msg *amqp.LedgerChangeMessage) error {
		return exportWorker.HandleLedgerChange(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped gracefully")
}
