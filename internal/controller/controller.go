// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package controller runs one user-initiated conversion end to end: it gates
// the request through the rate limiter and the validator, hands it to the
// conversion client, and turns every outcome into a localized message.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/pdiddy/rdfcsv/internal/conversion"
	"github.com/pdiddy/rdfcsv/internal/history"
	"github.com/pdiddy/rdfcsv/internal/messages"
	"github.com/pdiddy/rdfcsv/internal/ratelimit"
	"github.com/pdiddy/rdfcsv/internal/validate"
	"github.com/pdiddy/rdfcsv/pkg/types"
)

// ErrBusy is returned when Submit is called while another Submit runs.
var ErrBusy = errors.New("controller: a conversion is already running")

// Level classifies a message for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Converter performs a complete conversion.
type Converter interface {
	Convert(ctx context.Context, req types.ConversionRequest) (conversion.Result, error)
}

// Display shows user-facing messages.
type Display interface {
	Show(level Level, message string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(level Level, message string)

// Show implements Display.
func (f DisplayFunc) Show(level Level, message string) { f(level, message) }

// Recorder persists finished conversions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Metrics counts sessions and rate-limit denials.
type Metrics interface {
	ObserveSession(state types.State)
	IncRateLimited()
}

// RateLimitError means the request was refused by the local rate limiter.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, next slot in %s", e.Wait.Round(time.Second))
}

// ValidationError means the request failed local validation and was never
// sent.
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %d violation(s)", len(e.Result.Violations))
}

// Outcome is everything the user is told about one Submit.
type Outcome struct {
	State       types.State
	Level       Level
	Message     string
	Violations  []validate.Violation
	ArchivePath string
	Session     types.Session
	// Err is nil on success. For failures reported by the service it is a
	// *messages.SafeError wrapping the cause.
	Err error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLang sets the language of user-facing messages.
func WithLang(lang messages.Lang) Option {
	return func(c *Controller) { c.lang = lang }
}

// WithDisplay sets where messages are shown.
func WithDisplay(d Display) Option {
	return func(c *Controller) {
		if d != nil {
			c.display = d
		}
	}
}

// WithRecorder stores every submitted conversion.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithMetrics counts sessions and denials.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithWaitOnLimit makes Submit wait for a free rate-limit slot instead of
// refusing the request.
func WithWaitOnLimit(wait bool) Option {
	return func(c *Controller) { c.waitOnLimit = wait }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns at most one conversion at a time.
type Controller struct {
	client      Converter
	limiter     *ratelimit.Limiter
	lang        messages.Lang
	display     Display
	recorder    Recorder
	metrics     Metrics
	waitOnLimit bool
	logger      *slog.Logger
	now         func() time.Time

	busy atomic.Bool
}

// New creates a controller. A nil limiter gets the default limits.
func New(client Converter, limiter *ratelimit.Limiter, opts ...Option) *Controller {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
	}
	c := &Controller{
		client:  client,
		limiter: limiter,
		lang:    messages.English,
		display: DisplayFunc(func(Level, string) {}),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Submit runs req through rate limiting, validation and conversion. The
// final message is shown on the Display and returned in the Outcome.
func (c *Controller) Submit(ctx context.Context, req types.ConversionRequest) Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		return c.show(Outcome{
			State:   types.StateIdle,
			Level:   LevelError,
			Message: messages.Text(messages.KeyBusy, c.lang),
			Err:     ErrBusy,
		})
	}
	defer c.busy.Store(false)

	if out, ok := c.admit(ctx); !ok {
		return c.show(out)
	}

	if result := validate.Form(req); !result.Valid {
		c.logger.Debug("request rejected", "violations", len(result.Violations))
		return c.show(Outcome{
			State:      types.StateIdle,
			Level:      LevelError,
			Message:    messages.Violations(result, c.lang),
			Violations: result.Violations,
			Err:        &ValidationError{Result: result},
		})
	}

	c.display.Show(LevelInfo, messages.Text(messages.KeyInProgress, c.lang))

	res, err := c.client.Convert(ctx, req)
	out := Outcome{
		State:       res.Session.State,
		Session:     res.Session,
		ArchivePath: res.ArchivePath,
	}
	if err != nil {
		safe := messages.Describe(err, c.lang, c.logger)
		out.Level = LevelError
		out.Message = safe.UserMessage
		out.Err = safe
	} else {
		out.Level = LevelSuccess
		out.Message = messages.Text(messages.KeyDelivered, c.lang)
	}

	// A busy client never created a session.
	if !errors.Is(err, conversion.ErrSessionInFlight) {
		if c.metrics != nil {
			c.metrics.ObserveSession(out.State)
		}
		c.record(ctx, req, out)
	}
	return c.show(out)
}

// admit takes a rate-limit slot, waiting for one when configured to.
func (c *Controller) admit(ctx context.Context) (Outcome, bool) {
	if c.limiter.Allow() {
		return Outcome{}, true
	}
	wait := c.limiter.TimeUntilNextSlot()
	if c.metrics != nil {
		c.metrics.IncRateLimited()
	}
	msg := messages.Text(messages.KeyRateLimited, c.lang, waitSeconds(wait))

	if c.waitOnLimit {
		c.display.Show(LevelInfo, msg)
		if err := c.limiter.Wait(ctx); err == nil {
			return Outcome{}, true
		}
		return Outcome{
			State:   types.StateCanceled,
			Level:   LevelError,
			Message: messages.Text(messages.KeyCanceled, c.lang),
			Err:     ctx.Err(),
		}, false
	}

	return Outcome{
		State:   types.StateIdle,
		Level:   LevelError,
		Message: msg,
		Err:     &RateLimitError{Wait: wait},
	}, false
}

func (c *Controller) record(ctx context.Context, req types.ConversionRequest, out Outcome) {
	if c.recorder == nil {
		return
	}
	entry := history.Entry{
		SessionID:   out.Session.ID,
		Source:      req.Source(),
		State:       out.State,
		Attempts:    out.Session.Attempts,
		ArchivePath: out.ArchivePath,
		Message:     out.Message,
		CreatedAt:   out.Session.CreatedAt,
		FinishedAt:  c.now(),
	}
	if _, err := c.recorder.Record(ctx, entry); err != nil {
		c.logger.Warn("recording history failed", "session", out.Session.ID, "error", err)
	}
}

func (c *Controller) show(out Outcome) Outcome {
	c.display.Show(out.Level, out.Message)
	return out
}

// waitSeconds rounds d up to whole seconds, as shown to the user.
func waitSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// Progress returns an event handler for conversion.WithEvents that shows
// the service's progress labels on d.
func Progress(d Display, lang messages.Lang) func(conversion.Event) {
	return func(ev conversion.Event) {
		if ev.Session.State == types.StatePolling && ev.Session.LastStatus != "" {
			d.Show(LevelInfo, messages.Text(messages.KeyProgressStatus, lang, ev.Session.LastStatus))
		}
	}
}
