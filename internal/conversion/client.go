// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package conversion is the client for the asynchronous RDF-to-CSV service.
// A conversion is submitted once, which yields a session ID; the session's
// status is then polled on a fixed cadence until the service reports a
// terminal outcome, at which point the archive is handed to a Sink.
package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pdiddy/rdfcsv/internal/httputil"
	"github.com/pdiddy/rdfcsv/internal/validate"
	"github.com/pdiddy/rdfcsv/pkg/types"
)

const (
	// DefaultPollInterval is the cadence of status requests.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxAttempts bounds a session to about ten minutes at the
	// default cadence.
	DefaultMaxAttempts = 120
	// DefaultProgress is shown when a 202 carries no status label.
	DefaultProgress = "COMPUTING"

	submitPath = "/rdftocsvw/async"
	statusPath = "/status/"

	// maxJSONBody bounds the JSON bodies read from the service.
	maxJSONBody = 1 << 20
)

// Endpoint labels passed to observers.
const (
	EndpointSubmit = "submit"
	EndpointStatus = "status"
)

// ObserverFunc is told about every HTTP exchange with the service. Status is
// zero when no response arrived.
type ObserverFunc func(endpoint string, status int, duration time.Duration)

// Event reports a state change or a progress update of a session.
type Event struct {
	Session types.Session
}

// Result is the outcome of a finished poll.
type Result struct {
	Session types.Session
	// ArchivePath is where the Sink stored the archive on success.
	ArchivePath string
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval sets the status polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxAttempts sets how many status requests are made before giving up.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithStatusRetries sets how often a 429 from the status endpoint is retried.
func WithStatusRetries(n int) Option {
	return func(c *Client) { c.statusRetries = n }
}

// WithSink sets where finished archives go. The default is DirSink{"."}.
func WithSink(s Sink) Option {
	return func(c *Client) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithObserver registers a callback for every HTTP exchange.
func WithObserver(fn ObserverFunc) Option {
	return func(c *Client) { c.observer = fn }
}

// WithEvents registers a callback for session state changes and progress.
func WithEvents(fn func(Event)) Option {
	return func(c *Client) { c.events = fn }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to one conversion service. Convert admits one conversion at
// a time.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	pollInterval  time.Duration
	maxAttempts   int
	statusRetries int
	token         string
	userAgent     string
	sink          Sink
	observer      ObserverFunc
	events        func(Event)
	logger        *slog.Logger
	now           func() time.Time

	inFlight atomic.Bool
}

// New creates a client for the service at baseURL.
func New(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:   httpClient,
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		sink:         DirSink{Dir: "."},
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Convert submits req and polls until a terminal state. It fails with
// ErrSessionInFlight if another Convert on c is still running. Cancelling
// ctx stops the poll loop and leaves the session Canceled.
func (c *Client) Convert(ctx context.Context, req types.ConversionRequest) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSessionInFlight
	}
	defer c.inFlight.Store(false)

	session, err := c.Submit(ctx, req)
	if err != nil {
		return Result{Session: *session}, err
	}
	return c.Poll(ctx, session)
}

// Submit posts req to the submission endpoint. On success the returned
// session is in state Polling. On failure the session is returned too, in
// state Failed or Canceled, together with one of TransportError,
// InvalidRequestError, ServerError or ProtocolError.
func (c *Client) Submit(ctx context.Context, req types.ConversionRequest) (*types.Session, error) {
	req = req.Normalize()
	session := &types.Session{State: types.StateSubmitting, CreatedAt: c.now()}
	c.emit(session)

	body, contentType := encodeForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, body)
	if err != nil {
		body.Close()
		return session, c.fail(session, types.StateFailed, &TransportError{Err: err})
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.send(ctx, EndpointSubmit, httpReq, 0)
	if err != nil {
		if ctx.Err() != nil {
			return session, c.fail(session, types.StateCanceled, ctx.Err())
		}
		return session, c.fail(session, types.StateFailed, &TransportError{Err: err})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		return session, c.fail(session, types.StateFailed, &InvalidRequestError{Body: string(data)})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return session, c.fail(session, types.StateFailed, &ServerError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
		})
	}

	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(&payload); err != nil {
		return session, c.fail(session, types.StateFailed, &ProtocolError{Reason: "invalid JSON", Err: err})
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		return session, c.fail(session, types.StateFailed, &ProtocolError{Reason: "no session ID returned"})
	}

	session.ID = payload.SessionID
	session.State = types.StatePolling
	c.logger.Info("conversion submitted", "session", session.ID, "source", req.Source())
	c.emit(session)
	return session, nil
}

// Poll checks the session status on a fixed cadence until the service
// reports a terminal outcome, MaxAttempts is exceeded or ctx is done.
// Responses are handled one at a time in tick order.
func (c *Client) Poll(ctx context.Context, session *types.Session) (Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{Session: *session}, c.fail(session, types.StateCanceled, ctx.Err())
		case <-ticker.C:
		}

		session.Attempts++
		if session.Attempts > c.maxAttempts {
			return Result{Session: *session}, c.fail(session, types.StateTimedOut, &TimeoutError{
				SessionID: session.ID,
				Attempts:  c.maxAttempts,
			})
		}

		result, done, err := c.checkStatus(ctx, session)
		if done {
			return result, err
		}
	}
}

// checkStatus performs one status request. done is false while the
// conversion is still running.
func (c *Client) checkStatus(ctx context.Context, session *types.Session) (Result, bool, error) {
	statusURL := c.baseURL + statusPath + url.PathEscape(session.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return Result{Session: *session}, true, c.fail(session, types.StateFailed, &UnexpectedError{SessionID: session.ID, Err: err})
	}
	c.setHeaders(req)

	resp, err := c.send(ctx, EndpointStatus, req, c.statusRetries)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Session: *session}, true, c.fail(session, types.StateCanceled, ctx.Err())
		}
		return Result{Session: *session}, true, c.fail(session, types.StateFailed, &UnexpectedError{SessionID: session.ID, Err: err})
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		path, err := c.sink.Deliver(session.ArchiveName(), resp.Body)
		if err != nil {
			return Result{Session: *session}, true, c.fail(session, types.StateFailed, &UnexpectedError{
				SessionID: session.ID,
				Err:       fmt.Errorf("saving archive: %w", err),
			})
		}
		session.State = types.StateSucceeded
		c.logger.Info("conversion delivered", "session", session.ID, "path", path, "attempts", session.Attempts)
		c.emit(session)
		return Result{Session: *session, ArchivePath: path}, true, nil

	case http.StatusAccepted:
		session.LastStatus = progressLabel(resp.Body)
		c.logger.Debug("conversion running", "session", session.ID, "status", session.LastStatus, "attempt", session.Attempts)
		c.emit(session)
		return Result{}, false, nil

	case http.StatusNotFound:
		return Result{Session: *session}, true, c.fail(session, types.StateNotFound, &NotFoundError{SessionID: session.ID})

	case http.StatusInternalServerError:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		kind, code, detail := classifyFailure(data)
		return Result{Session: *session}, true, c.fail(session, types.StateFailed, &ComputationError{
			SessionID: session.ID,
			Kind:      kind,
			Code:      code,
			Detail:    detail,
		})

	default:
		return Result{Session: *session}, true, c.fail(session, types.StateFailed, &UnexpectedError{
			SessionID: session.ID,
			Status:    resp.StatusCode,
		})
	}
}

// send performs one exchange and reports it to the observer.
func (c *Client) send(ctx context.Context, endpoint string, req *http.Request, retries int) (*http.Response, error) {
	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, retries)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer(endpoint, status, time.Since(start))
	}
	return resp, err
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// fail moves session into a terminal state and returns err.
func (c *Client) fail(session *types.Session, state types.State, err error) error {
	session.State = state
	c.logger.Debug("conversion ended", "session", session.ID, "state", state, "error", err)
	c.emit(session)
	return err
}

func (c *Client) emit(session *types.Session) {
	if c.events != nil {
		c.events(Event{Session: *session})
	}
}

// progressLabel reads the status label of a 202 body.
func progressLabel(body io.Reader) string {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxJSONBody)).Decode(&payload); err != nil {
		return DefaultProgress
	}
	if s := strings.TrimSpace(payload.Status); s != "" {
		return s
	}
	return DefaultProgress
}

// statusText returns the reason phrase of resp, e.g. "Service Unavailable".
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// reservedFields are written from typed request fields and never taken from
// the pass-through map.
var reservedFields = map[string]bool{
	"file":               true,
	"fileURL":            true,
	"preferredLanguages": true,
	"namingConvention":   true,
}

// encodeForm streams req as multipart/form-data. The returned reader must be
// consumed or closed.
func encodeForm(req types.ConversionRequest) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()
	go func() {
		pw.CloseWithError(writeForm(mw, req))
	}()
	return pr, contentType
}

func writeForm(mw *multipart.Writer, req types.ConversionRequest) error {
	switch {
	case req.SourceURL != "":
		if err := mw.WriteField("fileURL", req.SourceURL); err != nil {
			return err
		}
	case req.File != nil:
		if req.File.Content == nil {
			return errors.New("file has no content")
		}
		part, err := mw.CreateFormFile("file", validate.BaseName(req.File.Name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, req.File.Content); err != nil {
			return fmt.Errorf("reading %s: %w", req.File.Name, err)
		}
	}

	if req.PreferredLanguages != "" {
		if err := mw.WriteField("preferredLanguages", req.PreferredLanguages); err != nil {
			return err
		}
	}
	if req.NamingConvention != "" {
		if err := mw.WriteField("namingConvention", req.NamingConvention); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		if !reservedFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, req.Fields[k]); err != nil {
			return err
		}
	}
	return mw.Close()
}
