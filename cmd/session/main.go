package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/database"
	"github.com/stemsi/exstem-session/internal/examapi"
	"github.com/stemsi/exstem-session/internal/handler"
	"github.com/stemsi/exstem-session/internal/logger"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/router"
	"github.com/stemsi/exstem-session/internal/service"
	"github.com/stemsi/exstem-session/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("state_backend", cfg.StateBackend).
		Str("profile", cfg.ProfileID).
		Msg("Starting ExStem exam session")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open State Backend ────────────────────────────────────────────
	repo, closeRepo, err := database.OpenRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StateBackend).Msg("Failed to open state backend")
	}
	defer closeRepo()

	// ─── Exam API Client ───────────────────────────────────────────────
	if cfg.ExamAPIToken == "" {
		log.Warn().Msg("EXAM_API_TOKEN is not set; the exam API will reject requests")
	}
	client := examapi.NewClient(cfg.ExamAPIURL, cfg.ExamAPIToken, log)

	// ─── Initialize Session ────────────────────────────────────────────
	session := service.NewExamSession(client, repo, service.SessionConfig{
		User:             model.User{UserID: cfg.UserID, Name: cfg.UserName},
		DefaultDuration:  cfg.DefaultDuration,
		PollInterval:     cfg.PollInterval,
		StaleStartPolicy: cfg.StaleStartPolicy,
	}, log)

	// Resume (or start) the configured exam before accepting traffic so a
	// reload lands on the running clock. Failure leaves the UI to retry.
	if cfg.TestID > 0 {
		if _, err := session.Start(ctx, cfg.TestID); err != nil {
			log.Warn().Err(err).Int("test_id", cfg.TestID).Msg("Exam auto-start failed")
		}
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(session, log),
		WS:      handler.NewWSHandler(session, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the exam clock. Saved progress stays in the backend for resume.
	session.Close()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
