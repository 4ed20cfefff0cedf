// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/tradegate/internal/platform/respond"
)

// # Health Endpoints

// StorageStatus describes the storage topology for readiness reporting.
type StorageStatus interface {
	// Name reports the active primary backend.
	Name() string
	// Mirrored reports whether writes replicate to a second backend.
	Mirrored() bool
	// Ping verifies the primary backend can serve requests.
	Ping(ctx context.Context) error
}

// Liveness reports that the process is up. It never touches storage, so a
// degraded backend cannot make the orchestrator restart a healthy process.
func Liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.JSON(writer, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// Readiness reports whether the service can serve traffic, including which
// storage backend is active and whether mirroring is in effect.
func Readiness(storage StorageStatus) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		pingCtx, cancel := context.WithTimeout(request.Context(), 5*time.Second)
		defer cancel()

		payload := map[string]any{
			"status":   "ok",
			"backend":  storage.Name(),
			"mirrored": storage.Mirrored(),
		}
		if err := storage.Ping(pingCtx); err != nil {
			payload["status"] = "degraded"
			respond.JSON(writer, http.StatusServiceUnavailable, payload)
			return
		}
		respond.JSON(writer, http.StatusOK, payload)
	}
}
