package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"chatbridge/internal/api"
	"chatbridge/internal/bridge"
	"chatbridge/internal/config"
	"chatbridge/internal/database"
	"chatbridge/internal/repository"
	"chatbridge/internal/reveal"
	"chatbridge/internal/service"
	"chatbridge/internal/session"
)

// App bundles the wired application for serving and for tests.
type App struct {
	Server *http.Server
	DB     *sql.DB
	Bridge bridge.Bridge
}

// New wires the application from a validated configuration.
func New(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	contract, err := bridge.NewContract(cfg.BackendContract)
	if err != nil {
		return nil, err
	}

	repo := repository.NewSQLiteRepository(db)
	backendBridge := bridge.New(cfg.BackendURL, cfg.Model, contract)
	sessions := session.NewManager()
	streamer := reveal.NewStreamer(time.Duration(cfg.RevealIntervalMs) * time.Millisecond)

	chatService := service.NewChatService(sessions, backendBridge, repo, streamer, cfg.BackendContract)
	chatHandler := api.NewChatHandler(chatService)
	router := api.NewRouter(chatHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for the streaming endpoint
		IdleTimeout:       120 * time.Second,
	}

	return &App{Server: server, DB: db, Bridge: backendBridge}, nil
}

// Run loads configuration, wires the application and serves until a
// shutdown signal arrives. Returns a process exit code.
func Run() int {
	cfg, err := config.Load()
	if err != nil {
		// slog is not yet configured, so the default handler reports this
		// fatal configuration error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	app, err := New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := app.DB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	slog.Info("Successfully connected to SQLite diagnostics store.", "path", cfg.DatabasePath)

	waitForBackend(app.Bridge)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort, "contract", cfg.BackendContract)
		errCh <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// waitForBackend gives the inference backend a bounded window to come up.
// Not fatal on exhaustion: availability is re-probed per request and the
// probe contract never fails callers.
func waitForBackend(b bridge.Bridge) {
	const attempts = 10

	slog.Info("Probing inference backend...")
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		available := b.CheckAvailability(ctx)
		cancel()
		if available {
			slog.Info("Inference backend is ready.")
			return
		}
		slog.Debug("Backend not ready yet, retrying...", "attempt", i+1)
		time.Sleep(3 * time.Second)
	}
	slog.Warn("Inference backend did not become ready; continuing anyway.")
}
