package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"call-insights-go/internal/prompt"
)

// newPromptCommand prints the analysis prompt for a transcript without
// calling any model. It needs no configuration.
func newPromptCommand() *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "prompt <transcript-file|->",
		Short: "Render the analysis prompt for a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := prompt.ForStyle(style)
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), build(strings.TrimSpace(string(data))))
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", prompt.StyleJSON, "Prompt style: json or legacy")
	return cmd
}
