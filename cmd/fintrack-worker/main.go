// Command fintrack-worker consumes change events from the broker and appends
// the affected records to a spreadsheet.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(os.Stdout, "info", "").Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)
	logger.Info("Starting fintrack-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	var (
		rows sheets.RowWriter
		mem  *memory.Store
	)
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		rows = exporter
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mem = memory.New()
		rows = mem
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(rows, cfg.GoogleSheetName, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
		if mem != nil {
			for _, tab := range mem.Tabs() {
				exported, _ := mem.Rows(context.Background(), tab)
				logger.Info("In-memory export", "tab", tab, log.FieldCount, len(exported))
			}
		}
	})

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		err := amqpClient.ConsumeChanges(consumeCtx, exportWorker.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	logger.Info("Consuming change events", log.FieldQueue, cfg.AMQPQueue, log.FieldExchange, cfg.AMQPExchange)
	cli.WaitForShutdown(ctx, done)
}
