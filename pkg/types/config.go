// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultServiceURL is the public deployment of the conversion service.
const DefaultServiceURL = "https://rdf-to-csvw.onrender.com"

// HTTPConfig holds shared HTTP settings used by every component that talks
// to the conversion service.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout. Uploads of large files can
	// take a while, so the default is generous.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "rdfcsv/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RateLimitConfig bounds how often conversions may be submitted.
type RateLimitConfig struct {
	// MaxRequests is the number of submissions admitted per window (default 5).
	MaxRequests int `json:"max_requests" yaml:"max_requests"`

	// Window is the trailing window length (default 60s).
	Window time.Duration `json:"window" yaml:"window"`
}

// HistoryConfig locates the local session history database.
type HistoryConfig struct {
	// Dir is the directory holding history.db.
	Dir string `json:"dir" yaml:"dir"`

	// Disabled turns off history recording entirely.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// ClientConfig groups every setting of a conversion run.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// ServiceURL is the base URL of the conversion service.
	ServiceURL string `json:"service_url" yaml:"service_url"`

	// PollInterval is the cadence of status requests (default 5s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxAttempts is the number of status polls before giving up
	// (default 120, about ten minutes at the default cadence).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// StatusRetries is how many times a 429 from the status endpoint is
	// retried with backoff before it counts as an unexpected status.
	StatusRetries int `json:"status_retries" yaml:"status_retries"`

	// Lang selects the user-facing locale ("en" or "cs").
	Lang string `json:"lang" yaml:"lang"`

	// OutputDir receives downloaded conversion archives.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	History   HistoryConfig   `json:"history" yaml:"history"`
}

// DefaultClientConfig returns the configuration used when no file, flag or
// environment variable overrides a value.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   5 * time.Minute,
			UserAgent: "rdfcsv/0.1",
		},
		ServiceURL:    DefaultServiceURL,
		PollInterval:  5 * time.Second,
		MaxAttempts:   120,
		StatusRetries: 2,
		Lang:          "en",
		OutputDir:     ".",
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Window:      60 * time.Second,
		},
		History: HistoryConfig{
			Dir: ".rdfcsv",
		},
	}
}
