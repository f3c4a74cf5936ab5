// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rdfcsv/internal/controller"
	"github.com/pdiddy/rdfcsv/internal/conversion"
	"github.com/pdiddy/rdfcsv/internal/health"
	"github.com/pdiddy/rdfcsv/internal/history"
	"github.com/pdiddy/rdfcsv/internal/messages"
	"github.com/pdiddy/rdfcsv/internal/observability"
	"github.com/pdiddy/rdfcsv/internal/ratelimit"
	"github.com/pdiddy/rdfcsv/internal/secrets"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or URLs...]",
	Short: "Convert RDF files or URLs to CSV on the Web",
	Long: `Convert submits each input to the conversion service, polls until the
conversion finishes, and saves the result as conversion-<session>.zip in the
output directory. Inputs are processed one at a time; a failed input does not
stop the rest. Press Ctrl-C to cancel the running conversion.`,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringArray("url", nil, "URL of an RDF resource to convert (repeatable)")
	f.String("preferred-languages", "", "comma-separated language codes, e.g. en,cs")
	f.String("naming-convention", "", "column naming convention, e.g. camelCase")
	f.StringArray("field", nil, "extra form field sent as-is, key=value (repeatable)")
	f.String("output-dir", "", "directory for downloaded archives")
	f.Duration("poll-interval", 0, "status polling cadence (default 5s)")
	f.Int("max-attempts", 0, "status polls before giving up (default 120)")
	f.Bool("wait-ready", false, "wait until the service has started before submitting")
	f.Bool("wait-on-limit", false, "wait for the rate limit instead of failing")
	f.String("metrics-file", "", "write Prometheus metrics to this file when done")
	f.String("history-dir", "", "directory of the history database")
	f.Bool("no-history", false, "do not record conversions in the history database")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"output_dir":    "output-dir",
		"poll_interval": "poll-interval",
		"max_attempts":  "max-attempts",
		"history_dir":   "history-dir",
		"no_history":    "no-history",
	})
	cfg := loadConfig()
	lang := messages.ParseLang(cfg.Lang)

	urls, _ := cmd.Flags().GetStringArray("url")
	inputs := append(append([]string{}, args...), urls...)
	if len(inputs) == 0 {
		return fmt.Errorf("provide one or more RDF files or URLs")
	}

	pairs, _ := cmd.Flags().GetStringArray("field")
	fields, err := parseFields(pairs)
	if err != nil {
		return err
	}
	langs, _ := cmd.Flags().GetString("preferred-languages")
	convention, _ := cmd.Flags().GetString("naming-convention")

	reqs, closeInputs, err := buildRequests(inputs, requestOptions{
		PreferredLanguages: langs,
		NamingConvention:   convention,
		Fields:             fields,
	})
	defer closeInputs()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	display := consoleDisplay(out)
	httpClient := newHTTPClient(cfg)

	if waitReady, _ := cmd.Flags().GetBool("wait-ready"); waitReady {
		if err := waitForService(ctx, cfg.ServiceURL, display, lang); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()
	client := conversion.New(cfg.ServiceURL, httpClient,
		conversion.WithPollInterval(cfg.PollInterval),
		conversion.WithMaxAttempts(cfg.MaxAttempts),
		conversion.WithStatusRetries(cfg.StatusRetries),
		conversion.WithSink(conversion.DirSink{Dir: cfg.OutputDir}),
		conversion.WithObserver(metrics.ObserveRequest),
		conversion.WithEvents(controller.Progress(display, lang)),
		conversion.WithToken(secrets.Token(loadedSecrets, viper.GetString("token"))),
		conversion.WithUserAgent(cfg.UserAgent),
		conversion.WithLogger(logger),
	)

	waitOnLimit, _ := cmd.Flags().GetBool("wait-on-limit")
	opts := []controller.Option{
		controller.WithLang(lang),
		controller.WithDisplay(display),
		controller.WithMetrics(metrics),
		controller.WithWaitOnLimit(waitOnLimit),
		controller.WithLogger(logger),
	}
	if !cfg.History.Disabled {
		store, err := history.Open(cfg.History)
		if err != nil {
			logger.Warn("history unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, controller.WithRecorder(store))
		}
	}

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	ctrl := controller.New(client, limiter, opts...)
	result := ctrl.SubmitAll(ctx, reqs, out)

	for _, o := range result.Outcomes {
		printArchive(out, o.ArchivePath)
	}

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("metrics not written", "error", err)
		}
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d input(s) failed", result.Failed, result.Total())
	}
	return nil
}

func waitForService(ctx context.Context, serviceURL string, display controller.Display, lang messages.Lang) error {
	checker := health.New(serviceURL, nil, logger)
	if st := checker.Check(ctx); st.Ready {
		return nil
	}
	display.Show(controller.LevelInfo, messages.Text(messages.KeyServiceLoading, lang))
	if _, err := checker.WaitReady(ctx, health.DefaultInterval); err != nil {
		return fmt.Errorf("waiting for service: %w", err)
	}
	display.Show(controller.LevelSuccess, messages.Text(messages.KeyServiceReady, lang))
	return nil
}

func printArchive(w io.Writer, path string) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "saved:   %s\n", path)
		return
	}
	fmt.Fprintf(w, "saved:   %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
}

// consoleDisplay prints one line per message, prefixed with its level.
func consoleDisplay(w io.Writer) controller.DisplayFunc {
	return func(level controller.Level, message string) {
		fmt.Fprintf(w, "%-8s %s\n", string(level)+":", message)
	}
}
