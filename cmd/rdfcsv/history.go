// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/rdfcsv/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversions",
	Long: `History shows conversions recorded by convert, most recent first.
The json and yaml formats export every recorded conversion; --limit applies
to the table.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", history.DefaultLimit, "number of conversions to show")
	historyCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	historyCmd.Flags().String("history-dir", "", "directory of the history database")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"history_dir": "history-dir"})
	cfg := loadConfig()
	cfg.History.Disabled = false

	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return store.ExportJSON(cmd.Context(), out)
	case "yaml":
		return store.ExportYAML(cmd.Context(), out)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q (use table, json, or yaml)", format)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No conversions recorded.")
		return nil
	}
	writeHistoryTable(out, entries)
	return nil
}

func writeHistoryTable(w io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATE\tPOLLS\tSESSION\tSOURCE\tARCHIVE")
	for _, e := range entries {
		finished := "-"
		if !e.FinishedAt.IsZero() {
			finished = humanize.Time(e.FinishedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			finished, e.State, e.Attempts, orDash(e.SessionID), e.Source, orDash(e.ArchivePath))
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
