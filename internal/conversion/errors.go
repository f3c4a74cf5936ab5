// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package conversion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionInFlight is returned by Convert while another conversion on the
// same Client has not reached a terminal state.
var ErrSessionInFlight = errors.New("a conversion is already in progress")

// TransportError means no HTTP response was received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Error: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidRequestError is an HTTP 400 from the submission endpoint.
type InvalidRequestError struct {
	Body string
}

func (e *InvalidRequestError) Error() string {
	return "Error: 400 - Invalid request parameters"
}

// StatusCode returns 400.
func (e *InvalidRequestError) StatusCode() int { return http.StatusBadRequest }

// ServerError is any other non-2xx answer to a submission.
type ServerError struct {
	Status     int
	StatusText string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Error: %d - %s", e.Status, e.StatusText)
}

// StatusCode returns the HTTP status of the failed submission.
func (e *ServerError) StatusCode() int { return e.Status }

// ProtocolError means a 2xx submission response did not carry a session ID.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed submission response: %s: %v", e.Reason, e.Err)
	}
	return "malformed submission response: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NotFoundError means the service no longer knows the session.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found or expired", e.SessionID)
}

// ComputationError is a conversion the service reported as failed (HTTP 500).
type ComputationError struct {
	SessionID string
	Kind      FailureKind
	// Code is the structured error code from the response body, if any.
	Code string
	// Detail is the raw service message. It is kept for diagnostics only.
	Detail string
}

func (e *ComputationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("conversion %s failed (%s)", e.SessionID, e.Kind)
	}
	return fmt.Sprintf("conversion %s failed (%s): %s", e.SessionID, e.Kind, e.Detail)
}

// TimeoutError means the status was checked MaxAttempts times without a
// terminal answer.
type TimeoutError struct {
	SessionID string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("conversion %s did not finish after %d status checks", e.SessionID, e.Attempts)
}

// UnexpectedError is a status the poll loop does not understand, or a local
// failure while checking status. Status is zero for local failures.
type UnexpectedError struct {
	SessionID string
	Status    int
	Err       error
}

func (e *UnexpectedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("unexpected HTTP %d while polling session %s", e.Status, e.SessionID)
	}
	return fmt.Sprintf("polling session %s: %v", e.SessionID, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }
