package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"fondi/internal/cli"
	"fondi/internal/core"
	"fondi/internal/services"
	gsheet "fondi/internal/sheets/google"
)

func main() {
	month := flag.String("month", "", "budget month to export (YYYY-MM, defaults to the current month)")
	dryRun := flag.Bool("dry-run", false, "print the report to stdout instead of writing to Google Sheets")
	flag.Parse()

	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	if !*dryRun && !cfg.SheetsConfigured() {
		logger.Error("Google Sheets export is not configured, set the GOOGLE_* variables or pass -dry-run")
		os.Exit(1)
	}

	raw := *month
	if raw == "" {
		raw = time.Now().Format("2006-01")
	}
	key, err := core.ParseMonthKey(raw)
	if err != nil {
		logger.Error("Invalid month", "month", raw, "error", err)
		os.Exit(1)
	}

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := services.NewBudgetService(repo).Report(ctx, key)
	if err != nil {
		logger.Error("Failed to assemble month report", "month", key, "error", err)
		os.Exit(1)
	}

	if *dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("Failed to print month report", "month", key, "error", err)
			os.Exit(1)
		}
		return
	}

	writer, err := gsheet.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	ref, err := writer.WriteMonthReport(ctx, report)
	if err != nil {
		logger.Error("Failed to write month report", "month", key, "error", err)
		os.Exit(1)
	}
	logger.Info("Month report exported", "month", key, "range", ref)
}
