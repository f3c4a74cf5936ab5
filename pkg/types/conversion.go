// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"io"
	"strings"
	"time"
)

// State is the position of a conversion session in its workflow.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
	StateNotFound   State = "not_found"
	StateCanceled   State = "canceled"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateNotFound, StateCanceled:
		return true
	}
	return false
}

// FileInput is a local RDF file to upload.
type FileInput struct {
	// Name is the file name sent in the multipart part.
	Name string `json:"name" yaml:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Content supplies the file bytes. It is read once, during submission.
	Content io.Reader `json:"-" yaml:"-"`
}

// ConversionRequest is the form submitted to the conversion service.
// Exactly one of File and SourceURL is sent.
type ConversionRequest struct {
	File      *FileInput `json:"file,omitempty" yaml:"file,omitempty"`
	SourceURL string     `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// PreferredLanguages is a comma-separated list of 2-3 letter codes.
	PreferredLanguages string `json:"preferred_languages,omitempty" yaml:"preferred_languages,omitempty"`

	// NamingConvention selects how the service names CSV columns.
	NamingConvention string `json:"naming_convention,omitempty" yaml:"naming_convention,omitempty"`

	// Fields are passed to the service untouched.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Normalize returns a copy of r in the shape that is sent: SourceURL is
// trimmed, and when it is non-empty the file is dropped.
func (r ConversionRequest) Normalize() ConversionRequest {
	out := r
	out.SourceURL = strings.TrimSpace(r.SourceURL)
	out.PreferredLanguages = strings.TrimSpace(r.PreferredLanguages)
	out.NamingConvention = strings.TrimSpace(r.NamingConvention)
	if out.SourceURL != "" {
		out.File = nil
	}
	return out
}

// Source describes the input for display and history: the URL, or the
// file name.
func (r ConversionRequest) Source() string {
	n := r.Normalize()
	if n.SourceURL != "" {
		return n.SourceURL
	}
	if n.File != nil {
		return n.File.Name
	}
	return ""
}

// Session correlates a submitted conversion with its status polls.
type Session struct {
	ID         string    `json:"id" yaml:"id"`
	State      State     `json:"state" yaml:"state"`
	Attempts   int       `json:"attempts" yaml:"attempts"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	LastStatus string    `json:"last_status,omitempty" yaml:"last_status,omitempty"`
}

// ArchiveName is the file name under which a finished conversion is saved.
func (s Session) ArchiveName() string {
	return "conversion-" + s.ID + ".zip"
}
