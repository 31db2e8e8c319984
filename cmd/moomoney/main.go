package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moomoney/internal/amqp"
	"moomoney/internal/config"
	apphttp "moomoney/internal/http"
	"moomoney/internal/ledger"
	"moomoney/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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

	opts := []ledger.Option{}
	if cfg.AMQPURL != "" {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		opts = append(opts, ledger.WithEvents(events))
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}

	tracker, err := ledger.NewTracker(ctx, db, opts...)
	if err != nil {
		logger.Error("Failed to load ledger state", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, tracker, cfg.MaxImportBytes)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting moomoney server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
