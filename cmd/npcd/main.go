// npcd - NPC Society daemon
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/npcsociety/npcd/internal/api"
	"github.com/npcsociety/npcd/internal/config"
	"github.com/npcsociety/npcd/internal/engine"
	"github.com/npcsociety/npcd/internal/ident"
	"github.com/npcsociety/npcd/internal/middleware"
	"github.com/npcsociety/npcd/internal/policy"
	"github.com/npcsociety/npcd/internal/speech"
	"github.com/npcsociety/npcd/internal/store"
	"github.com/npcsociety/npcd/internal/transcript"
	"github.com/npcsociety/npcd/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting daemon", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close journal", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	transcriber, err := transcript.New(cfg.Transcript)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcriber.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	journal := store.NewObserver(repo)
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			slog.Error("Failed to close journal observer", "error", closeErr)
		}
	}()

	// Session collaborators. The silence synthesizer stands in until a
	// real TTS backend is wired up; the counting sink does the same for
	// inbound voice.
	deps := engine.SessionDeps{
		Gen:        ident.NewGenerator(),
		Policy:     policy.NewComposite(policy.NewGreeter(), policy.NewMiner()),
		Synth:      speech.NewSilence(),
		Sink:       speech.NewCountingSink(),
		Transcript: transcriber,
		Observer:   journal,
	}

	mgr := transport.NewManager()
	wsHandler := transport.NewWebSocketHandler(deps, mgr, cfg)
	apiHandler := api.NewHandler(repo, mgr)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint for the game plugin.
	r.Get("/v1/connect", wsHandler.ServeHTTP)

	// Note: no WriteTimeout; plugin connections are long-lived streams.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 0,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start journal janitor.
	store.StartJanitor(ctx, repo, cfg.JournalRetention, cfg.JanitorInterval)
	slog.Info("Journal janitor started", "retention", cfg.JournalRetention, "interval", cfg.JanitorInterval)

	// Start server.
	go func() {
		slog.Info("Daemon listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	mgr.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Daemon stopped")
}
