// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api runs the Tradegate authentication and session service.
//
// Startup probes the document database once: reachable means the database is
// primary with the flat-file store mirroring every write; unreachable means
// the file store serves alone. The decision holds for the process lifetime.
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

	"github.com/taibuivan/tradegate/internal/api"
	"github.com/taibuivan/tradegate/internal/platform/config"
	"github.com/taibuivan/tradegate/internal/platform/constants"
	"github.com/taibuivan/tradegate/internal/users/auth"
)

func main() {
	// ── 1. Logger ──
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
	log = log.With("app", constants.AppName)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	// ── 2. Configuration ──
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "environment", cfg.Environment, "port", cfg.ServerPort)

	// Application lifetime context, cancelled on SIGINT/SIGTERM.
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Storage selection ──
	startupCtx, cancel := context.WithTimeout(appCtx, 15*time.Second)
	defer cancel()

	storage, err := auth.SelectBackend(startupCtx, cfg, log)
	if err != nil {
		return err // No backend can serve; refuse to start.
	}

	// ── 4. Identity service and bootstrap ──
	service := auth.NewService(storage, log)
	if err := service.Bootstrap(startupCtx, auth.BootstrapAdmin{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return err
	}

	go service.RunExpirySweep(appCtx, auth.ExpirySweepInterval)

	// ── 5. HTTP server ──
	handler := auth.NewHandler(service, log)
	server := api.NewServer(appCtx, cfg, log, service, handler, storage)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr, "backend", storage.Name())
		serverErr <- server.ListenAndServe()
	}()

	// ── 6. Graceful shutdown ──
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-appCtx.Done():
		log.Info("shutdown signal received")
		api.Shutdown(server, log)
	}
	return nil
}
