/*
Package main is the entry point for the Howdy Bot.

It is responsible for loading configuration, initializing the global logging
system, performing the REST login exchange, opening the ledger database,
constructing the connection supervisor and its feature modules, starting the
control dashboard HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"howdybot/internal/app/auth"
	"howdybot/internal/app/bus"
	"howdybot/internal/app/db"
	"howdybot/internal/app/engine"
	"howdybot/internal/app/ledger"
	"howdybot/internal/app/state"
	"howdybot/internal/configs"
	"howdybot/internal/features"
	"howdybot/internal/features/economy"
	"howdybot/internal/features/profile"
	"howdybot/internal/handler"
	"howdybot/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger with the dashboard's log ring
	logRing := logx.NewRing(logx.DefaultRingCapacity)
	logx.InitGlobalLogger(cfg.Environment == "development", logRing)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("bot_username", cfg.BotUsername).
		Str("default_room", cfg.DefaultRoom).
		Int("max_reconnect_attempts", cfg.MaxReconnectAttempts).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// REST login: exchanges credentials for the wire transport token.
	login, err := auth.Login(ctx, cfg.APIBaseURL, cfg.BotUsername, cfg.BotPassword)
	if err != nil {
		logx.Fatal(err, "Howdies API login failed")
	}

	// Ledger database pool + idempotent schema migration.
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize ledger database")
	}
	defer pool.Close()

	ledgerStore := ledger.New(pool)
	store := state.NewStore()
	dispatcher := bus.New(bus.DefaultMaxConcurrent)

	session := engine.NewSession(login.Token, cfg.BotUsername, cfg.DefaultRoom, login.UserID)
	eng := engine.New(engine.Config{
		WSURL:                cfg.WSURL,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		BackoffCap:           cfg.ReconnectBackoffCap,
		SendInterval:         cfg.SendInterval,
	}, session, store, dispatcher)

	// Load feature modules; a failing feature is logged and skipped.
	loader := features.NewLoader()
	loader.Load(&features.Env{Engine: eng, Store: ledgerStore, Admin: cfg.MasterAdmin},
		profile.New(),
		economy.New(),
	)

	// Run the connection supervisor on its own goroutine.
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run()
	}()

	// Control dashboard HTTP server.
	router := handler.Router(&handler.AppDeps{
		Engine:  eng,
		Loader:  loader,
		LogRing: logRing,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Control dashboard starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Dashboard server failed to start")
		}
	}()

	// Wait for an interrupt signal or a dead session.
	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
		eng.Stop()
		if err := <-engineDone; err != nil {
			logx.Error(err, "Engine exited with error during shutdown")
		}
	case err := <-engineDone:
		if err != nil {
			logx.Error(err, "Wire session is permanently dead; shutting down")
		} else {
			logx.Info("Engine stopped; shutting down")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Dashboard server forced to shutdown")
	}

	logx.Info("Howdy Bot stopped.")
}
