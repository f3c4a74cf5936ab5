// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit bounds how often conversions are submitted using a
// sliding window of recent submission times. State lives only in memory and
// resets when the process restarts.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of submissions admitted per window.
	DefaultMaxRequests = 5
	// DefaultWindow is the trailing window length.
	DefaultWindow = 60 * time.Second
)

// Limiter is a sliding-window counter. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	max        int
	window     time.Duration
	timestamps []time.Time
	now        func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, letting tests move time by hand.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter admitting max requests per window. Non-positive
// arguments fall back to the defaults.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records the current time and returns true when fewer than max
// requests remain inside the window. Otherwise it returns false and
// records nothing.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.timestamps) >= l.max {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// TimeUntilNextSlot returns zero when a request would be admitted, or how
// long until the oldest recorded request leaves the window.
func (l *Limiter) TimeUntilNextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.timestamps) < l.max {
		return 0
	}
	return max(0, l.window-now.Sub(l.timestamps[0]))
}

// Wait blocks until Allow succeeds or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		d := l.TimeUntilNextSlot()
		if d <= 0 {
			d = time.Millisecond
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops timestamps that have left the window. Timestamps are appended
// in order, so the expired ones form a prefix.
func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.timestamps) && now.Sub(l.timestamps[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
