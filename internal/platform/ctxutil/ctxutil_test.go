// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tradegate/internal/platform/ctxutil"
	"github.com/taibuivan/tradegate/internal/platform/sec"
)

/*
TestRequestID_RoundTrip verifies storage and retrieval of the correlation ID.
*/
func TestRequestID_RoundTrip(t *testing.T) {
	ctx := ctxutil.WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", ctxutil.GetRequestID(ctx))
}

/*
TestRequestID_Missing verifies the zero-value fallback on a bare context.
*/
func TestRequestID_Missing(t *testing.T) {
	assert.Equal(t, "", ctxutil.GetRequestID(context.Background()))
}

/*
TestLogger_FallbackToDefault verifies that a bare context returns the default logger.
*/
func TestLogger_FallbackToDefault(t *testing.T) {
	logger := ctxutil.GetLogger(context.Background())
	assert.Equal(t, slog.Default(), logger)
}

/*
TestLogger_RoundTrip verifies retrieval of an injected logger.
*/
func TestLogger_RoundTrip(t *testing.T) {
	custom := slog.Default().With(slog.String("scope", "test"))
	ctx := ctxutil.WithLogger(context.Background(), custom)
	assert.Same(t, custom, ctxutil.GetLogger(ctx))
}

/*
TestPrincipal_RoundTrip verifies storage and retrieval of the session principal.
*/
func TestPrincipal_RoundTrip(t *testing.T) {
	principal := &sec.Principal{Username: "alice", Role: sec.RoleUser}

	ctx := ctxutil.WithPrincipal(context.Background(), principal)
	assert.Same(t, principal, ctxutil.GetPrincipal(ctx))

	// Anonymous context yields nil.
	assert.Nil(t, ctxutil.GetPrincipal(context.Background()))
}
