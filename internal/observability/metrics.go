// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability counts service requests and conversion outcomes and
// writes them in the Prometheus text format for node_exporter's textfile
// collector.
package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsTotal   *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdfcsv_requests_total",
				Help: "Total requests sent to the conversion service.",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rdfcsv_request_duration_seconds",
				Help:    "Conversion service request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdfcsv_sessions_total",
				Help: "Conversions by final state.",
			},
			[]string{"state"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rdfcsv_rate_limited_total",
				Help: "Submissions refused or delayed by the local rate limiter.",
			},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.sessionsTotal,
		m.rateLimited,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest matches conversion.ObserverFunc. Status 0 means no response
// was received.
func (m *Metrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	if status == 0 {
		statusLabel = "error"
	}
	m.requestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.requestDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSession(state types.State) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
