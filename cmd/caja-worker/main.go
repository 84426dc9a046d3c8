package main

import (
	"context"
	"errors"
	"os"
	"time"

	"caja/internal/amqp"
	"caja/internal/cli"
	"caja/internal/config"
	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/sheets"
	gsheet "caja/internal/sheets/google"
	"caja/internal/sheets/memory"
	"caja/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(clog.ComponentWorker)
	logger.Info("Starting caja-worker", clog.FieldOperation, clog.OpStartup)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", clog.FieldError, err)
		os.Exit(1)
	}

	tax := core.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		var err error
		if tax, err = core.LoadTaxonomy(cfg.TaxonomyFile); err != nil {
			logger.Error("Failed to load taxonomy", clog.FieldError, err, "path", cfg.TaxonomyFile)
			os.Exit(1)
		}
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	mirror, err := newMirror(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", clog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", clog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	summaries := worker.NewSummaryWorker(repo, mirror, tax, cfg.SummarySyncConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on changes published while the worker was down.
	logger.Info("Performing startup summary sync", clog.FieldOperation, clog.OpSync)
	if err := summaries.SyncAll(ctx); err != nil {
		logger.Error("Startup summary sync failed", clog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeLedgerChanges(ctx, summaries.HandleLedgerChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Ledger change consumption failed", clog.FieldError, err)
		}
	}()

	ticker := time.NewTicker(cfg.SummarySyncInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := summaries.SyncAll(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Periodic summary sync failed", clog.FieldError, err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", clog.FieldOperation, clog.OpShutdown)
}

// newMirror returns the Google Sheets client, or an in-process workbook
// when no spreadsheet is configured so the worker can still be exercised
// end to end.
func newMirror(cfg *config.Config, logger *clog.Logger) (sheets.Mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set: summaries are kept in memory only")
		return memory.New(), nil
	}
	client, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
