package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/strainguard/injury-risk-backend/internal/api"
	"github.com/strainguard/injury-risk-backend/internal/coach"
	"github.com/strainguard/injury-risk-backend/internal/config"
	"github.com/strainguard/injury-risk-backend/internal/store"
	"github.com/strainguard/injury-risk-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Root context ──────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready")

	// ── Coach ─────────────────────────────────────────────────────────────────
	// With no Ollama endpoint configured the coach is fallback-only; every
	// plan still gets served, just without the model path.
	var gen coach.Generator
	if cfg.OllamaBaseURL != "" {
		gen = coach.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaTimeout)
		logger.Info("coach: model path enabled", "base_url", cfg.OllamaBaseURL, "model", cfg.OllamaModel)
	} else {
		logger.Info("coach: fallback-only, no model endpoint configured")
	}
	c := coach.New(gen, logger)

	// ── Recorder ──────────────────────────────────────────────────────────────
	recorder := worker.NewPool(st, worker.PoolConfig{
		Workers:    cfg.RecorderWorkers,
		MaxRetries: cfg.RecorderRetries,
	}, logger)

	recorderDone := make(chan struct{})
	go func() {
		recorder.Start(ctx)
		close(recorderDone)
	}()

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(st, c, recorder, api.Config{
		Env:         cfg.Env,
		CORSOrigins: cfg.CORSOrigins,
		CoachModel:  cfg.OllamaModel,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generous — the coach endpoint waits on the model
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Wait for the recorder to drain its queue before closing the pool.
	select {
	case <-recorderDone:
	case <-time.After(20 * time.Second):
		logger.Warn("recorder did not drain in time")
	}

	logger.Info("shutdown complete")
	return nil
}
