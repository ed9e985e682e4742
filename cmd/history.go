package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded batch runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.RunRepo().ListRuns(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-8s  %-19s  %-24s  %-18s  %-24s  %5s  %5s  %6s\n",
			"ID", "Started", "File", "Provider", "Model", "Rows", "OK", "Failed")
		fmt.Fprintln(out, strings.Repeat("─", 122))

		for _, r := range runs {
			status := ""
			if !r.Finished() {
				status = "  (interrupted)"
			}
			fmt.Fprintf(out, "%-8s  %-19s  %-24s  %-18s  %-24s  %5d  %5d  %6d%s\n",
				truncate(r.ID, 8),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(r.Source, 24),
				r.Provider,
				truncate(r.Model, 24),
				r.Rows,
				r.Succeeded,
				r.Failed,
				status,
			)
		}
		return nil
	},
}

var historyViewCmd = &cobra.Command{
	Use:   "view <run-id>",
	Short: "View a run and its per-row model calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		run, err := s.RunRepo().GetRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get run %q: %w", args[0], err)
		}
		events, err := s.EventRepo().RowEvents(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("query row events: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %s\n", run.ID)
		fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if run.Finished() {
			fmt.Fprintf(out, "Finished:  %s (%s)\n",
				run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
				run.FinishedAt.Sub(run.StartedAt).Round(10*time.Millisecond))
		} else {
			fmt.Fprintln(out, "Finished:  (interrupted)")
		}
		fmt.Fprintf(out, "File:      %s", run.Source)
		if run.Sheet != "" {
			fmt.Fprintf(out, " [%s]", run.Sheet)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Provider:  %s\n", run.Provider)
		fmt.Fprintf(out, "Model:     %s\n", run.Model)
		fmt.Fprintf(out, "Rows:      %d (%d ok, %d failed)\n", run.Rows, run.Succeeded, run.Failed)

		if len(events) == 0 {
			fmt.Fprintln(out, "\nNo model calls recorded.")
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "%5s  %-6s  %6s  %6s  %7s  %s\n", "Row", "OK", "In", "Out", "Ms", "Error")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			fmt.Fprintf(out, "%5d  %-6s  %6d  %6d  %7d  %s\n",
				e.Row, ok, e.InputTokens, e.OutputTokens, e.LatencyMs, e.ErrorMessage)
		}

		if !verbose {
			return nil
		}

		sep := strings.Repeat("─", 60)
		for _, e := range events {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sep)
			fmt.Fprintf(out, "ROW %d REQUEST\n", e.Row)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, orNotCaptured(e.RequestBody))
			fmt.Fprintln(out, sep)
			fmt.Fprintf(out, "ROW %d RESPONSE\n", e.Row)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, orNotCaptured(e.ResponseBody))
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		usage, err := s.EventRepo().UsageByModel(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(usage) == 0 {
			fmt.Fprintln(out, "No usage recorded yet.")
			return nil
		}

		fmt.Fprintln(out, "Usage by Model (cost in USD)")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		fmt.Fprintf(out, "%-32s  %6s  %6s  %10s  %10s  %8s  %10s\n",
			"Model", "Calls", "Failed", "Input", "Output", "Avg Ms", "Cost")
		fmt.Fprintln(out, strings.Repeat("─", 96))

		var totalCalls, totalFailed, totalIn, totalOut int
		var totalCost float64
		var unknownModels []string
		for _, mu := range usage {
			totalCalls += mu.Calls
			totalFailed += mu.Failures
			totalIn += mu.InputTokens
			totalOut += mu.OutputTokens

			cost := "?"
			if mc := llm.LookupCost(mu.Model); mc != nil {
				c := mc.Cost(mu.InputTokens, mu.OutputTokens)
				totalCost += c
				cost = formatCost(c)
			} else {
				unknownModels = append(unknownModels, mu.Model)
			}
			fmt.Fprintf(out, "%-32s  %6d  %6d  %10d  %10d  %8d  %10s\n",
				truncate(mu.Model, 32), mu.Calls, mu.Failures, mu.InputTokens, mu.OutputTokens, mu.AvgLatencyMs, cost)
		}

		fmt.Fprintln(out, strings.Repeat("─", 96))
		label := "TOTAL"
		if len(unknownModels) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6d  %6d  %10d  %10d  %8s  %10s\n",
			label, totalCalls, totalFailed, totalIn, totalOut, "", formatCost(totalCost))

		if len(unknownModels) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
		}
		return nil
	},
}

func orNotCaptured(s string) string {
	if s == "" {
		return "(not captured)"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	historyViewCmd.Flags().BoolP("verbose", "v", false, "Print captured request and response bodies")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyViewCmd)
	historyCmd.AddCommand(historyStatsCmd)
}
