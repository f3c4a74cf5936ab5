// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rdfcsv/internal/httputil"
	"github.com/pdiddy/rdfcsv/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// --- test helpers ---

// memorySink records deliveries instead of writing files.
type memorySink struct {
	mu    sync.Mutex
	names []string
	data  [][]byte
}

func (s *memorySink) Deliver(name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.data = append(s.data, b)
	return "mem://" + name, nil
}

// eventLog collects the states a session passes through.
type eventLog struct {
	mu     sync.Mutex
	events []types.Session
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e.Session)
}

func (l *eventLog) states() []types.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.State, len(l.events))
	for i, s := range l.events {
		out[i] = s.State
	}
	return out
}

// statusScript serves the given status responses in order, repeating the
// last one.
type statusScript struct {
	mu        sync.Mutex
	responses []scripted
	calls     int
}

type scripted struct {
	code int
	body string
}

func (s *statusScript) next() scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i]
}

func (s *statusScript) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newService(t *testing.T, sessionID string, script *statusScript) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rdftocsvw/async", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"sessionId": sessionID})
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != sessionID {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := script.next()
		w.WriteHeader(resp.code)
		io.WriteString(w, resp.body)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func urlRequest() types.ConversionRequest {
	return types.ConversionRequest{SourceURL: "https://example.org/data.ttl"}
}

func newTestClient(ts *httptest.Server, opts ...Option) *Client {
	base := []Option{WithPollInterval(time.Millisecond)}
	return New(ts.URL, ts.Client(), append(base, opts...)...)
}

// --- submission ---

func TestSubmit_ReturnsPollingSession(t *testing.T) {
	ts := newService(t, "abc123", &statusScript{})
	log := &eventLog{}
	c := newTestClient(ts, WithEvents(log.record))

	session, err := c.Submit(context.Background(), urlRequest())
	require.NoError(t, err)

	assert.Equal(t, "abc123", session.ID)
	assert.Equal(t, types.StatePolling, session.State)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Equal(t, []types.State{types.StateSubmitting, types.StatePolling}, log.states())
}

func TestSubmit_FormEncoding(t *testing.T) {
	tests := []struct {
		name      string
		req       types.ConversionRequest
		wantURL   string
		wantFile  string
		wantBytes string
	}{
		{
			name: "url wins over file",
			req: types.ConversionRequest{
				SourceURL: " https://example.org/data.ttl ",
				File:      &types.FileInput{Name: "local.ttl", Size: 4, Content: strings.NewReader("data")},
			},
			wantURL: "https://example.org/data.ttl",
		},
		{
			name: "file upload",
			req: types.ConversionRequest{
				File: &types.FileInput{Name: "/tmp/in/local.nt", Size: 4, Content: strings.NewReader("<a>")},
			},
			wantFile:  "local.nt",
			wantBytes: "<a>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, submitPath, r.URL.Path)
				assert.Equal(t, "rdfcsv-test", r.Header.Get("User-Agent"))
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
					return
				}
				defer r.MultipartForm.RemoveAll()

				assert.Equal(t, tt.wantURL, r.FormValue("fileURL"))
				files := r.MultipartForm.File["file"]
				if tt.wantFile == "" {
					assert.Empty(t, files)
				} else if assert.Len(t, files, 1) {
					assert.Equal(t, tt.wantFile, files[0].Filename)
					f, err := files[0].Open()
					if assert.NoError(t, err) {
						b, _ := io.ReadAll(f)
						f.Close()
						assert.Equal(t, tt.wantBytes, string(b))
					}
				}
				io.WriteString(w, `{"sessionId":"s1"}`)
			}))
			defer ts.Close()

			c := New(ts.URL, ts.Client(), WithUserAgent("rdfcsv-test"), WithToken(" tok "))
			_, err := c.Submit(context.Background(), tt.req)
			require.NoError(t, err)
		})
	}
}

func TestSubmit_OptionalAndPassThroughFields(t *testing.T) {
	var got map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			got = r.MultipartForm.Value
		}
		io.WriteString(w, `{"sessionId":"s1"}`)
	}))
	defer ts.Close()

	req := types.ConversionRequest{
		SourceURL:          "https://example.org/data.ttl",
		PreferredLanguages: "en,cs",
		NamingConvention:   "snake_case",
		Fields: map[string]string{
			"choice":             "rdf4j",
			"tables":             "multiple",
			"preferredLanguages": "de",
		},
	}
	_, err := New(ts.URL, ts.Client()).Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"en,cs"}, got["preferredLanguages"])
	assert.Equal(t, []string{"snake_case"}, got["namingConvention"])
	assert.Equal(t, []string{"rdf4j"}, got["choice"])
	assert.Equal(t, []string{"multiple"}, got["tables"])
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":"bad"}`,
			check: func(t *testing.T, err error) {
				var target *InvalidRequestError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 400, target.StatusCode())
				assert.Equal(t, "Error: 400 - Invalid request parameters", err.Error())
			},
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				var target *ServerError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 503, target.Status)
				assert.Equal(t, "Service Unavailable", target.StatusText)
				assert.Equal(t, "Error: 503 - Service Unavailable", err.Error())
			},
		},
		{
			name:   "missing session id",
			status: http.StatusOK,
			body:   `{"status":"ok"}`,
			check: func(t *testing.T, err error) {
				var target *ProtocolError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "invalid json",
			status: http.StatusCreated,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				var target *ProtocolError
				require.ErrorAs(t, err, &target)
				assert.NotNil(t, target.Err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			session, err := New(ts.URL, ts.Client()).Submit(context.Background(), urlRequest())
			require.Error(t, err)
			require.NotNil(t, session)
			assert.Equal(t, types.StateFailed, session.State)
			tt.check(t, err)
		})
	}
}

func TestSubmit_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	session, err := New(url, nil).Submit(context.Background(), urlRequest())
	var target *TransportError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, types.StateFailed, session.State)
}

// --- polling ---

func TestConvert_PollsUntilArchive(t *testing.T) {
	script := &statusScript{responses: []scripted{
		{http.StatusAccepted, `{"status":"PARSING"}`},
		{http.StatusAccepted, `{"status":"PARSING"}`},
		{http.StatusOK, "PK\x03\x04zip-bytes"},
	}}
	ts := newService(t, "abc123", script)
	sink := &memorySink{}
	log := &eventLog{}
	c := newTestClient(ts, WithSink(sink), WithEvents(log.record))

	result, err := c.Convert(context.Background(), urlRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateSucceeded, result.Session.State)
	assert.Equal(t, 3, result.Session.Attempts)
	assert.Equal(t, "mem://conversion-abc123.zip", result.ArchivePath)
	assert.Equal(t, []string{"conversion-abc123.zip"}, sink.names)
	assert.Equal(t, []byte("PK\x03\x04zip-bytes"), sink.data[0])
	assert.Equal(t, []types.State{
		types.StateSubmitting,
		types.StatePolling,
		types.StatePolling,
		types.StatePolling,
		types.StateSucceeded,
	}, log.states())
	assert.Equal(t, "PARSING", log.events[2].LastStatus)
	assert.Equal(t, 3, script.count())
}

func TestPoll_DefaultProgressLabel(t *testing.T) {
	script := &statusScript{responses: []scripted{
		{http.StatusAccepted, `{}`},
		{http.StatusAccepted, `not json`},
		{http.StatusOK, "zip"},
	}}
	ts := newService(t, "s1", script)
	log := &eventLog{}
	c := newTestClient(ts, WithSink(&memorySink{}), WithEvents(log.record))

	_, err := c.Convert(context.Background(), urlRequest())
	require.NoError(t, err)
	assert.Equal(t, DefaultProgress, log.events[2].LastStatus)
	assert.Equal(t, DefaultProgress, log.events[3].LastStatus)
}

func TestPoll_TimesOutWithoutExtraRequest(t *testing.T) {
	script := &statusScript{responses: []scripted{{http.StatusAccepted, `{"status":"COMPUTING"}`}}}
	ts := newService(t, "slow", script)
	sink := &memorySink{}
	c := newTestClient(ts, WithSink(sink), WithMaxAttempts(120))

	result, err := c.Convert(context.Background(), urlRequest())

	var target *TimeoutError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 120, target.Attempts)
	assert.Equal(t, types.StateTimedOut, result.Session.State)
	assert.Equal(t, 120, script.count())
	assert.Empty(t, sink.names)
}

func TestPoll_TerminalStatuses(t *testing.T) {
	tests := []struct {
		name      string
		resp      scripted
		wantState types.State
		check     func(t *testing.T, err error)
	}{
		{
			name:      "not found",
			resp:      scripted{http.StatusNotFound, ""},
			wantState: types.StateNotFound,
			check: func(t *testing.T, err error) {
				var target *NotFoundError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "s1", target.SessionID)
			},
		},
		{
			name:      "computation failed with legacy message",
			resp:      scripted{http.StatusInternalServerError, `{"message":"java.lang.OutOfMemoryError: heap"}`},
			wantState: types.StateFailed,
			check: func(t *testing.T, err error) {
				var target *ComputationError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, KindOutOfMemory, target.Kind)
				assert.Contains(t, target.Detail, "OutOfMemoryError")
			},
		},
		{
			name:      "computation failed with structured code",
			resp:      scripted{http.StatusInternalServerError, `{"code":"parse_error","error":"line 3"}`},
			wantState: types.StateFailed,
			check: func(t *testing.T, err error) {
				var target *ComputationError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, KindParse, target.Kind)
				assert.Equal(t, "PARSE_ERROR", target.Code)
			},
		},
		{
			name:      "computation failed unreadable",
			resp:      scripted{http.StatusInternalServerError, `Internal Server Error`},
			wantState: types.StateFailed,
			check: func(t *testing.T, err error) {
				var target *ComputationError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, KindUnreadable, target.Kind)
			},
		},
		{
			name:      "unexpected status",
			resp:      scripted{http.StatusTeapot, ""},
			wantState: types.StateFailed,
			check: func(t *testing.T, err error) {
				var target *UnexpectedError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, http.StatusTeapot, target.Status)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := &statusScript{responses: []scripted{tt.resp}}
			ts := newService(t, "s1", script)
			c := newTestClient(ts, WithSink(&memorySink{}))

			result, err := c.Convert(context.Background(), urlRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantState, result.Session.State)
			assert.Equal(t, 1, script.count())
			tt.check(t, err)
		})
	}
}

func TestPoll_RetriesRateLimitedStatus(t *testing.T) {
	script := &statusScript{responses: []scripted{
		{http.StatusTooManyRequests, ""},
		{http.StatusOK, "zip"},
	}}
	ts := newService(t, "s1", script)
	c := newTestClient(ts, WithSink(&memorySink{}), WithStatusRetries(2))

	result, err := c.Convert(context.Background(), urlRequest())
	require.NoError(t, err)
	assert.Equal(t, types.StateSucceeded, result.Session.State)
	assert.Equal(t, 1, result.Session.Attempts)
}

func TestPoll_SinkFailure(t *testing.T) {
	script := &statusScript{responses: []scripted{{http.StatusOK, "zip"}}}
	ts := newService(t, "s1", script)
	c := newTestClient(ts, WithSink(failingSink{}))

	result, err := c.Convert(context.Background(), urlRequest())
	var target *UnexpectedError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 0, target.Status)
	assert.Equal(t, types.StateFailed, result.Session.State)
}

type failingSink struct{}

func (failingSink) Deliver(string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestPoll_Cancel(t *testing.T) {
	script := &statusScript{responses: []scripted{{http.StatusAccepted, `{"status":"WRITING"}`}}}
	ts := newService(t, "s1", script)

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(ts, WithEvents(func(e Event) {
		if e.Session.Attempts >= 3 {
			cancel()
		}
	}))

	result, err := c.Convert(ctx, urlRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateCanceled, result.Session.State)
	assert.GreaterOrEqual(t, script.count(), 3)
}

func TestConvert_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rdftocsvw/async", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sessionId":"one"}`)
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		<-release
		io.WriteString(w, "zip")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	started := make(chan struct{})
	var once sync.Once
	c := newTestClient(ts, WithSink(&memorySink{}), WithEvents(func(e Event) {
		if e.Session.State == types.StatePolling {
			once.Do(func() { close(started) })
		}
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.Convert(context.Background(), urlRequest())
		done <- err
	}()

	<-started
	_, err := c.Convert(context.Background(), urlRequest())
	assert.ErrorIs(t, err, ErrSessionInFlight)

	close(release)
	require.NoError(t, <-done)

	// The slot is free again once the first conversion finished.
	_, err = c.Convert(context.Background(), urlRequest())
	assert.NoError(t, err)
}

func TestClient_Observer(t *testing.T) {
	script := &statusScript{responses: []scripted{
		{http.StatusAccepted, `{}`},
		{http.StatusOK, "zip"},
	}}
	ts := newService(t, "s1", script)

	var mu sync.Mutex
	var seen []string
	c := newTestClient(ts, WithSink(&memorySink{}), WithObserver(func(endpoint string, status int, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, endpoint+":"+http.StatusText(status))
	}))

	_, err := c.Convert(context.Background(), urlRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"submit:OK", "status:Accepted", "status:OK"}, seen)
}

func TestEncodeForm_MissingContent(t *testing.T) {
	body, _ := encodeForm(types.ConversionRequest{File: &types.FileInput{Name: "a.ttl", Size: 1}})
	_, err := io.Copy(&bytes.Buffer{}, body)
	assert.ErrorContains(t, err, "file has no content")
}
