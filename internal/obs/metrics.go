// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package obs exposes Prometheus metrics for the site.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/cache"
)

const namespace = "automatepro"

// Metrics holds the collectors and the registry they are registered in.
type Metrics struct {
	reg *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	roleChecks   *prometheus.CounterVec
	gatedActions *prometheus.CounterVec
	buildInfo    *prometheus.GaugeVec
}

// New creates metrics in a fresh registry with the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		roleChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_checks_total",
			Help:      "Role checks by role and outcome.",
		}, []string{"role", "outcome"}),
		gatedActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gated_actions_total",
			Help:      "Gated tool actions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information.",
		}, []string{"version", "commit"}),
	}
	m.reg.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.roleChecks, m.gatedActions, m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry for registering further collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// SetBuildInfo sets build_info{version,commit} to 1.
func (m *Metrics) SetBuildInfo(version, commit string) {
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

// ObserveRoleCheck counts a role check decision. It has the signature of
// access.WithObserver.
func (m *Metrics) ObserveRoleCheck(role string, d access.Decision) {
	outcome := "denied"
	switch {
	case d.Failed():
		outcome = "failed"
	case d.Allowed:
		outcome = "allowed"
	}
	m.roleChecks.WithLabelValues(role, outcome).Inc()
}

// ObserveGatedAction counts a gated action that ran or was redirected.
func (m *Metrics) ObserveGatedAction(tool string, ran bool) {
	outcome := "redirected"
	if ran {
		outcome = "ran"
	}
	m.gatedActions.WithLabelValues(tool, outcome).Inc()
}

// Instrument records request count, latency and in-flight requests. The
// route label is chi's route pattern, so path parameters do not explode
// the label set.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// CacheCollector exports the counters of a cache.
type CacheCollector struct {
	stats  func() (cache.Stats, bool)
	hits   *prometheus.Desc
	misses *prometheus.Desc
	items  *prometheus.Desc
}

// NewCacheCollector reads stats on every scrape.
func NewCacheCollector(backend string, stats func() (cache.Stats, bool)) *CacheCollector {
	labels := prometheus.Labels{"backend": backend}
	return &CacheCollector{
		stats:  stats,
		hits:   prometheus.NewDesc(namespace+"_cache_hits_total", "Cache hits.", nil, labels),
		misses: prometheus.NewDesc(namespace+"_cache_misses_total", "Cache misses.", nil, labels),
		items:  prometheus.NewDesc(namespace+"_cache_items", "Items in the cache.", nil, labels),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.items
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s, ok := c.stats()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(s.Items))
}
