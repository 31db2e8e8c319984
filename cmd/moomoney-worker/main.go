package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moomoney/internal/amqp"
	"moomoney/internal/config"
	"moomoney/internal/sheets"
	"moomoney/internal/sheets/google"
	"moomoney/internal/sheets/memory"
	"moomoney/internal/storage"
	"moomoney/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting moomoney-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewStateDB(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open state database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer db.Close()

	var writer sheets.ReportWriter
	switch cfg.MirrorBackend {
	case "google":
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		writer = memory.New()
		logger.Info("In-memory mirror initialized (reports are not persisted)")
	}

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	mirror := worker.NewMirrorWorker(db, writer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Catch up on anything missed while the worker was down, then
		// follow the event stream.
		if err := mirror.MirrorAll(ctx); err != nil {
			logger.Error("Catch-up mirror failed", "error", err)
		}
		return events.Consume(ctx, func(msg *amqp.LedgerEventMessage) error {
			return mirror.HandleEvent(ctx, msg)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
