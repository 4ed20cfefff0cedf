// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api assembles the HTTP surface of the Tradegate service.

It mounts the domain route trees behind a shared middleware chain (request ID,
structured logging, rate limiting, panic recovery, CORS, session
authentication) and exposes the operational health endpoints.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/tradegate/internal/platform/config"
	"github.com/taibuivan/tradegate/internal/platform/constants"
	"github.com/taibuivan/tradegate/internal/platform/middleware"
	"github.com/taibuivan/tradegate/internal/users/auth"
)

// # Server Assembly

/*
NewServer builds the fully wired HTTP server.

The middleware chain runs outermost-first: panic recovery wraps everything so
a panic in any later stage still produces a JSON 500; authentication runs last
so every authenticated request is already logged and rate limited.

Parameters:
  - ctx: the application lifetime context; background middleware goroutines
    stop when it is cancelled.
  - cfg: application configuration.
  - log: structured root logger.
  - verifier: resolves bearer tokens into request principals.
  - authHandler: the identity route tree.
  - storage: storage topology for readiness reporting.

Returns:
  - *http.Server: ready to ListenAndServe.
*/
func NewServer(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	verifier middleware.SessionVerifier,
	authHandler *auth.Handler,
	storage StorageStatus,
) *http.Server {
	router := chi.NewRouter()

	// ── Middleware chain ──
	router.Use(middleware.PanicRecovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(log))
	router.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.RateLimit(ctx))
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.Authenticate(verifier))

	// ── Operational endpoints ──
	router.Get("/health", Liveness)
	router.Get("/ready", Readiness(storage))

	// ── Domain routes ──
	router.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", authHandler.Routes())
	})

	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadTimeout:       constants.DefaultReadTimeout,
		WriteTimeout:      constants.DefaultWriteTimeout,
		IdleTimeout:       constants.DefaultIdleTimeout,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}
}

// Shutdown drains in-flight requests within the configured grace period.
func Shutdown(server *http.Server, log *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		return
	}
	log.Info("server drained")
}
