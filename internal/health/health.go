// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package health probes whether the conversion service is up. Free hosting
// tiers put the service to sleep, so the first requests after a pause only
// succeed once it has booted.
package health

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultInterval is the probe cadence of Watch and WaitReady.
const DefaultInterval = 5 * time.Second

// Status is the result of one probe.
type Status struct {
	// Ready is true when any HTTP response arrived, whatever its status.
	Ready      bool
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time
	Err        error
}

// Checker probes the root of a service.
type Checker struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a checker for the service at baseURL.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Checker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Check sends one GET to the service root.
func (c *Checker) Check(ctx context.Context) Status {
	start := time.Now()
	st := Status{CheckedAt: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		st.Err = err
		return st
	}
	resp, err := c.httpClient.Do(req)
	st.Latency = time.Since(start)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
		st.Err = err
		return st
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	st.Ready = true
	st.StatusCode = resp.StatusCode
	return st
}

// Watch probes immediately and then every interval, passing each result to
// fn, until ctx ends.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, fn func(Status)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(c.Check(ctx))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitReady blocks until a probe succeeds or ctx ends. It returns the
// successful status.
func (c *Checker) WaitReady(ctx context.Context, interval time.Duration) (Status, error) {
	var ready Status
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := c.Watch(watchCtx, interval, func(st Status) {
		if st.Ready {
			ready = st
			cancel()
		}
	})
	if ready.Ready {
		return ready, nil
	}
	return Status{}, err
}
