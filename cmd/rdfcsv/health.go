// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rdfcsv/internal/health"
	"github.com/pdiddy/rdfcsv/internal/messages"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the conversion service is up",
	Long: `Health sends a request to the service root. The hosted service sleeps
when idle and takes a while to start, so any response counts as ready and a
failed connection as still loading. Use --watch to keep probing.`,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().Bool("watch", false, "keep probing until interrupted")
	healthCmd.Flags().Duration("interval", health.DefaultInterval, "time between probes with --watch")

	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	lang := messages.ParseLang(cfg.Lang)
	checker := health.New(cfg.ServiceURL, newHTTPClient(cfg), logger)
	out := cmd.OutOrStdout()

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		st := checker.Check(cmd.Context())
		printHealth(out, st, lang)
		if !st.Ready {
			return fmt.Errorf("service at %s is not ready", cfg.ServiceURL)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval, _ := cmd.Flags().GetDuration("interval")
	err := checker.Watch(ctx, interval, func(st health.Status) {
		printHealth(out, st, lang)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printHealth(w io.Writer, st health.Status, lang messages.Lang) {
	stamp := st.CheckedAt.Format(time.TimeOnly)
	if st.Ready {
		fmt.Fprintf(w, "%s %s (HTTP %d, %s)\n", stamp, messages.Text(messages.KeyServiceReady, lang),
			st.StatusCode, st.Latency.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "%s %s\n", stamp, messages.Text(messages.KeyServiceLoading, lang))
}
