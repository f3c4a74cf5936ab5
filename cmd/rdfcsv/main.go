// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rdfcsv CLI, a client for the
// asynchronous RDF to CSV on the Web conversion service.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rdfcsv/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is configured from log_level before any command runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the rdfcsv CLI.
var rootCmd = &cobra.Command{
	Use:   "rdfcsv",
	Short: "Convert RDF data to CSV on the Web",
	Long: `rdfcsv submits RDF files or URLs to the RDF to CSVW conversion service,
follows each conversion until it finishes, and saves the resulting zip archive.

Submissions are rate limited locally and validated before anything is sent.
Messages are available in English and Czech (--lang cs).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(viper.GetString("log_level"))
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Info("using config file", "path", f)
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Info("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./rdfcsv.yaml or ~/.config/rdfcsv/rdfcsv.yaml)")
	flags.String("service-url", "", "base URL of the conversion service")
	flags.String("lang", "", "message language: en or cs")
	flags.String("log-level", "", "diagnostic log level: debug, info, warn, error")
	flags.String("token", "", "bearer token for the conversion service")

	viper.BindPFlag("service_url", flags.Lookup("service-url"))
	viper.BindPFlag("lang", flags.Lookup("lang"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("token", flags.Lookup("token"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rdfcsv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rdfcsv"))
		}
	}

	setDefaults()

	viper.SetEnvPrefix("RDFCSV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; defaults and flags still apply.
	_ = viper.ReadInConfig()
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
