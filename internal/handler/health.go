// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/editor"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/version"
)

// Health status values.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// Pinger is a dependency the health check can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks    map[string]Pinger
	roles     editor.RoleCheck
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. checks maps a name such as
// "database" to the dependency to ping. roles decides who sees details and
// may be nil.
func NewHealthHandler(checks map[string]Pinger, roles editor.RoleCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		roles:     roles,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// HealthStatusPublic is the minimal health response.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed response shown to admins.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Anyone but an admin gets the status only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := h.runChecks(r.Context())

	overall := statusOK
	for _, c := range checks {
		if c.Status != statusOK {
			overall = statusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if overall != statusOK {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if !h.isAdmin(r) {
		_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   version.Get().Version,
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]Check {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]Check, len(names))
	for _, name := range names {
		out[name] = h.ping(ctx, h.checks[name])
	}
	return out
}

func (h *HealthHandler) ping(ctx context.Context, p Pinger) Check {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusOK, Latency: latency.String()}
}

func (h *HealthHandler) isAdmin(r *http.Request) bool {
	if h.roles == nil {
		return false
	}
	sess := middleware.GetSession(r)
	if sess == nil {
		return false
	}
	return h.roles.Check(r.Context(), sess.User.ID, backend.RoleAdmin).Allowed
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     humanize.IBytes(m.Alloc),
		MemSys:       humanize.IBytes(m.Sys),
	}
}
