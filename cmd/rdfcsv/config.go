// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

func setDefaults() {
	d := types.DefaultClientConfig()
	viper.SetDefault("service_url", d.ServiceURL)
	viper.SetDefault("timeout", d.Timeout)
	viper.SetDefault("user_agent", d.UserAgent)
	viper.SetDefault("poll_interval", d.PollInterval)
	viper.SetDefault("max_attempts", d.MaxAttempts)
	viper.SetDefault("status_retries", d.StatusRetries)
	viper.SetDefault("lang", d.Lang)
	viper.SetDefault("output_dir", d.OutputDir)
	viper.SetDefault("history_dir", d.History.Dir)
	viper.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	viper.SetDefault("rate_limit.window", d.RateLimit.Window)
	viper.SetDefault("log_level", "warn")
}

// bindFlags binds flags of cmd to config keys. Commands share keys such as
// history_dir, so binding happens when a command runs rather than in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

// loadConfig assembles the effective configuration from defaults, the
// config file, RDFCSV_* variables and bound flags.
func loadConfig() types.ClientConfig {
	return types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
		},
		ServiceURL:    viper.GetString("service_url"),
		PollInterval:  viper.GetDuration("poll_interval"),
		MaxAttempts:   viper.GetInt("max_attempts"),
		StatusRetries: viper.GetInt("status_retries"),
		Lang:          viper.GetString("lang"),
		OutputDir:     viper.GetString("output_dir"),
		RateLimit: types.RateLimitConfig{
			MaxRequests: viper.GetInt("rate_limit.max_requests"),
			Window:      viper.GetDuration("rate_limit.window"),
		},
		History: types.HistoryConfig{
			Dir:      viper.GetString("history_dir"),
			Disabled: viper.GetBool("no_history"),
		},
	}
}

func newHTTPClient(cfg types.ClientConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}
