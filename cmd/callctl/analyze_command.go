package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"call-insights-go/internal/app"
	"call-insights-go/internal/processor"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		transcript bool
		asJSON     bool
		session    string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Transcribe and analyze a call recording",
		Long: "Transcribe and analyze a call recording (" + strings.Join(processor.SupportedFormats, ", ") + ").\n" +
			"With --transcript the file is read as a plain-text transcript and transcription is skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return ctx.withApp(cmd, func(a *app.App) error {
				var (
					res processor.Result
					err error
				)
				if transcript {
					data, rerr := os.ReadFile(path)
					if rerr != nil {
						return fmt.Errorf("read transcript: %w", rerr)
					}
					res, err = a.Processor.AnalyzeTranscript(cmd.Context(), string(data), session)
				} else {
					f, oerr := os.Open(path)
					if oerr != nil {
						return fmt.Errorf("open recording: %w", oerr)
					}
					defer f.Close()
					res, err = a.Processor.Analyze(cmd.Context(), processor.Upload{
						Filename:  filepath.Base(path),
						Body:      f,
						SessionID: session,
					})
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, res)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&transcript, "transcript", false, "Treat the file as a text transcript")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().StringVar(&session, "session", processor.DefaultSession, "History session to record the call under")
	return cmd
}

func renderResult(res processor.Result) string {
	pairs := [][2]string{
		{"ID", res.ID},
		{"Status", res.Status},
	}
	if res.Analysis == nil {
		pairs = append(pairs, [2]string{"Raw reply", res.RawReply})
		return renderPairs(pairs)
	}

	an := res.Analysis
	score := "n/a"
	if an.SentimentScore != nil {
		score = strconv.Itoa(*an.SentimentScore)
	}
	pairs = append(pairs,
		[2]string{"Sentiment", orNA(string(an.FinalSentiment))},
		[2]string{"Score", score},
		[2]string{"Escalation", orNA(string(an.EscalationRequired))},
		[2]string{"Outcome", orNA(string(an.Outcome))},
		[2]string{"Summary", orNA(an.ResolutionSummary)},
		[2]string{"Key issues", orNA(strings.Join(an.KeyIssues, "; "))},
		[2]string{"Tokens", fmt.Sprintf("%d in / %d out", res.Usage.PromptTokens, res.Usage.ResponseTokens)},
	)
	for _, w := range an.Warnings {
		pairs = append(pairs, [2]string{"Warning", w.Code + ": " + w.Message})
	}
	return renderPairs(pairs)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}
