package main

import (
	"context"
	"errors"
	"os"

	"fatura/internal/backend"
	"fatura/internal/cli"
	"fatura/internal/config"
	"fatura/internal/log"
	"fatura/internal/services"
	gsheet "fatura/internal/sheets/google"
	"fatura/internal/worker"
)

var errNoBroker = errors.New("export worker could not connect to the AMQP broker")

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig((*config.Config).ValidateExporter)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting fatura-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	// The worker only reads, so it never publishes events of its own.
	ledgerSvc := services.NewLedgerService(result.Store)

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		TabPrefix:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(ledgerSvc, sheetsClient)

	// The factory degrades to no events when the broker is down; the
	// worker has nothing to do without one.
	if result.AMQP == nil {
		return errNoBroker
	}

	logger.Info("Consuming invoice changes",
		log.FieldOperation, log.OpConsume,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	err = result.AMQP.ConsumeInvoiceChanged(ctx, exportWorker.HandleInvoiceChanged)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
