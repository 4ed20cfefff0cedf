// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tradegate/internal/platform/middleware"
)

// stubConfig satisfies middleware.AppConfig with fixed values.
type stubConfig struct {
	development bool
	origins     []string
}

func (cfg stubConfig) IsDevelopment() bool      { return cfg.development }
func (cfg stubConfig) AllowedOrigins() []string { return cfg.origins }

func corsHandler(cfg stubConfig) http.Handler {
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	return middleware.CORS(cfg)(next)
}

/*
TestCORS_OriginFiltering verifies which origins receive CORS headers in
each environment: development accepts everything, production accepts only
the configured allow-list.
*/
func TestCORS_OriginFiltering(t *testing.T) {
	testCases := []struct {
		name        string
		config      stubConfig
		origin      string
		wantAllowed bool
	}{
		{
			name:        "development allows any origin",
			config:      stubConfig{development: true},
			origin:      "https://anything.example.com",
			wantAllowed: true,
		},
		{
			name:        "production allows a configured origin",
			config:      stubConfig{origins: []string{"https://app.tradegate.app", "https://staging.tradegate.app"}},
			origin:      "https://staging.tradegate.app",
			wantAllowed: true,
		},
		{
			name:        "production rejects an unknown origin",
			config:      stubConfig{origins: []string{"https://app.tradegate.app"}},
			origin:      "https://evil.example.com",
			wantAllowed: false,
		},
		{
			name:        "production with no configured origins rejects everything",
			config:      stubConfig{},
			origin:      "https://app.tradegate.app",
			wantAllowed: false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/health", nil)
			request.Header.Set("Origin", testCase.origin)

			recorder := httptest.NewRecorder()
			corsHandler(testCase.config).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			if testCase.wantAllowed {
				assert.Equal(t, testCase.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestCORS_Preflight verifies that OPTIONS requests short-circuit with
204 No Content and carry the CORS headers for an allowed origin.
*/
func TestCORS_Preflight(t *testing.T) {
	cfg := stubConfig{origins: []string{"https://app.tradegate.app"}}

	request := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	request.Header.Set("Origin", "https://app.tradegate.app")

	recorder := httptest.NewRecorder()
	corsHandler(cfg).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://app.tradegate.app", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, recorder.Header().Get("Access-Control-Allow-Methods"))
}

/*
TestCORS_NoOriginHeader verifies that same-origin requests pass through
untouched.
*/
func TestCORS_NoOriginHeader(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/health", nil)

	recorder := httptest.NewRecorder()
	corsHandler(stubConfig{}).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
