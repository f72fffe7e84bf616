package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"call-insights-go/internal/actionable"
	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/app"
	"call-insights-go/internal/dataset"
	"call-insights-go/internal/history"
	"call-insights-go/internal/processor"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		session string
		asJSON  bool
		export  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a session's analyzed calls with a summary and action card",
		Long:  "Show a session's analyzed calls. History outlives the process only with the redis history backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				entries, err := a.Processor.History(cmd.Context(), session)
				if err != nil {
					return err
				}
				summary := aggregator.Summarize(entries)
				card := actionable.Generate(summary)

				if export != "" {
					if err := exportHistory(export, entries, summary); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d calls to %s\n", len(entries), export)
					return nil
				}
				if asJSON {
					return writeJSON(cmd, map[string]any{
						"session":     session,
						"entries":     entries,
						"summary":     summary,
						"action_card": card,
					})
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No calls recorded for session %q\n", session)
				} else {
					rows := make([][]string, 0, len(entries))
					for _, e := range entries {
						sentiment, escalation := "n/a", "n/a"
						if e.Analysis != nil {
							sentiment = orNA(string(e.Analysis.FinalSentiment))
							escalation = orNA(string(e.Analysis.EscalationRequired))
						}
						rows = append(rows, []string{
							e.CreatedAt.Format("2006-01-02 15:04"),
							orNA(e.Filename),
							e.Status,
							sentiment,
							escalation,
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"When", "File", "Status", "Sentiment", "Escalation"}, rows, nil))
				}

				fmt.Fprintln(out, renderSummary(summary))
				fmt.Fprintf(out, "\n%s\nAction: %s\nImpact: %s\n", card.Insight, card.Action, card.Impact)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&session, "session", processor.DefaultSession, "History session to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries, summary and action card as JSON")
	cmd.Flags().StringVar(&export, "export", "", "Write the history to an xlsx workbook instead of printing it")
	return cmd
}

func exportHistory(path string, entries []history.Entry, s aggregator.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := dataset.ExportHistory(f, entries, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderSummary(s aggregator.Summary) string {
	mean := "n/a"
	if s.MeanScore != nil {
		mean = strconv.FormatFloat(*s.MeanScore, 'f', 1, 64)
	}
	issues := make([]string, 0, len(s.TopIssues))
	for _, ic := range s.TopIssues {
		issues = append(issues, fmt.Sprintf("%s (%d)", ic.Issue, ic.Count))
	}
	return renderPairs([][2]string{
		{"Calls", strconv.Itoa(s.Total)},
		{"Analyzed", strconv.Itoa(s.Analyzed)},
		{"Unparsed", strconv.Itoa(s.Unparsed)},
		{"Escalation rate", fmt.Sprintf("%.0f%%", s.EscalationRate*100)},
		{"Mean score", mean},
		{"Top issues", orNA(strings.Join(issues, "; "))},
	})
}
