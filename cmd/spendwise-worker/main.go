package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/log"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/worker"
)

func main() {
	backfillUser := flag.Int64("backfill-user", 0, "export the full history of this user id before consuming events")
	auditYear := flag.Int("audit-year", 0, "with -backfill-user, report that user's expenses of this year missing from the sheet")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	logger.Info("Starting spendwise-worker")

	cfg := cli.LoadAndValidateConfig(logger, func(c *config.Config) error {
		return errors.Join(c.Validate(), c.ValidateExporter())
	})

	ctx := context.Background()
	store := cli.InitStore(ctx, logger, cfg)

	exporter, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		UseADC:          cfg.GoogleApplicationDefault,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(store.Store, exporter)

	runCtx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close store", log.FieldError, err)
			}
		}
	})

	if *backfillUser > 0 {
		logger.Info("Backfilling expense history", log.FieldUserID, *backfillUser)
		if err := exportWorker.ExportHistory(runCtx, *backfillUser); err != nil {
			// Keep consuming; the next backfill picks up whatever was missed.
			logger.Error("Backfill failed", log.FieldError, err, log.FieldUserID, *backfillUser)
		}
		if *auditYear > 0 {
			report, err := exportWorker.Audit(runCtx, *backfillUser, *auditYear)
			if err != nil {
				logger.Error("Export audit failed", log.FieldError, err, log.FieldUserID, *backfillUser)
			} else if len(report.Missing) > 0 {
				logger.Warn("Expenses missing from sheet after backfill", log.FieldUserID, *backfillUser, "missing", report.Missing)
			}
		}
	}

	go func() {
		logger.Info("Consuming expense events", "queue", cfg.AMQPQueue)
		if err := amqpClient.ConsumeExpenseEvents(runCtx, exportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker stopped gracefully")
}
