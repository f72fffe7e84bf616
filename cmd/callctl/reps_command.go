package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"call-insights-go/internal/app"
	"call-insights-go/internal/reps"
)

func newRepsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reps",
		Short: "Browse the rep directory",
	}
	cmd.AddCommand(newRepsListCommand(ctx))
	cmd.AddCommand(newRepsShowCommand(ctx))
	return cmd
}

func newRepsListCommand(ctx *commandContext) *cobra.Command {
	var (
		sortFlag string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reps, highest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := reps.ParseOrder(sortFlag)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				list := a.Reps.Sorted(order)
				if asJSON {
					return writeJSON(cmd, list)
				}
				rows := make([][]string, 0, len(list))
				for _, r := range list {
					rows = append(rows, []string{
						r.ID,
						r.Name,
						strconv.Itoa(r.SentimentScore),
						strconv.Itoa(r.Escalations),
						strconv.Itoa(len(r.Calls)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Score", "Escalations", "Calls"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortFlag, "sort", string(reps.OrderScore), "Sort by score, calls or escalations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func newRepsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a rep's profile and call history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				rep, err := a.Reps.Get(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, rep)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderPairs([][2]string{
					{"ID", rep.ID},
					{"Name", rep.Name},
					{"Sentiment score", strconv.Itoa(rep.SentimentScore)},
					{"Escalations", strconv.Itoa(rep.Escalations)},
				}))
				if len(rep.Calls) == 0 {
					fmt.Fprintln(out, "No recorded calls")
					return nil
				}
				rows := make([][]string, 0, len(rep.Calls))
				for _, c := range rep.Calls {
					rows = append(rows, []string{
						c.Date,
						c.Sentiment.Outcome,
						strconv.FormatFloat(c.Sentiment.Score, 'f', 2, 64),
						c.Transcript,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Date", "Outcome", "Score", "Transcript"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rep as JSON")
	return cmd
}
