// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/backend"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Health_Public(t *testing.T) {
	app := newTestApp(t)

	rec := app.browser(t).get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"status": "ok"}, resp, "anonymous callers get the status only")
}

func TestHealthHandler_Health_NonAdminGetsStatusOnly(t *testing.T) {
	app := newTestApp(t)
	b, _ := app.signedIn(t, "jane@example.com")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(b.get("/health").Body.Bytes(), &resp))
	assert.NotContains(t, resp, "checks")
}

func TestHealthHandler_Health_Admin(t *testing.T) {
	app := newTestApp(t)
	b, _ := app.signedIn(t, "admin@example.com", backend.RoleAdmin)

	rec := b.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"].Status)
	assert.NotEmpty(t, resp.Uptime)
	require.NotNil(t, resp.System)
	assert.Positive(t, resp.System.NumCPU)
}

func TestHealthHandler_Health_Unhealthy(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return errors.New("database is locked") }),
	}, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthStatusPublic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.NotContains(t, rec.Body.String(), "locked", "errors are not shown publicly")
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestSystemInfo(t *testing.T) {
	info := systemInfo()
	assert.NotEmpty(t, info.GoVersion)
	assert.Positive(t, info.NumCPU)
	assert.Positive(t, info.NumGoroutine)
	assert.Regexp(t, `^[0-9.]+ (B|[KMGT]iB)$`, info.MemAlloc)
	assert.Regexp(t, `^[0-9.]+ (B|[KMGT]iB)$`, info.MemSys)
}
