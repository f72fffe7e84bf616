package dataset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/history"
)

// Sheet names of the exported workbook.
const (
	HistorySheet = "History"
	SummarySheet = "Summary"
)

var historyHeader = []any{
	"ID", "Created At", "File", "Status", "Sentiment", "Score",
	"Escalation", "Outcome", "Resolution Summary", "Key Issues",
	"Warnings", "Prompt Tokens", "Response Tokens", "Transcript", "Raw Reply",
}

// ExportHistory writes the session history and its summary as an xlsx
// workbook. Unknown fields are left blank rather than zero.
func ExportHistory(w io.Writer, entries []history.Entry, s aggregator.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &historyHeader); err != nil {
		return err
	}
	for i, e := range entries {
		row := []any{e.ID, e.CreatedAt.UTC().Format(time.RFC3339), e.Filename, e.Status}
		if a := e.Analysis; a != nil {
			score := any("")
			if v, ok := a.Score(); ok {
				score = v
			}
			warnings := make([]string, 0, len(a.Warnings))
			for _, wn := range a.Warnings {
				warnings = append(warnings, wn.Code)
			}
			row = append(row,
				string(a.FinalSentiment), score, string(a.EscalationRequired), string(a.Outcome),
				a.ResolutionSummary, strings.Join(a.KeyIssues, "; "), strings.Join(warnings, ", "),
			)
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		row = append(row, e.Usage.PromptTokens, e.Usage.ResponseTokens, e.Transcript, e.RawReply)

		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(HistorySheet, cellName, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(HistorySheet, "I", "J", 40)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	mean := any("")
	if s.MeanScore != nil {
		mean = fmt.Sprintf("%.1f", *s.MeanScore)
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Total calls", s.Total},
		{"Analyzed", s.Analyzed},
		{"Unparsed", s.Unparsed},
		{"Escalations", s.Escalations},
		{"Escalation rate", fmt.Sprintf("%.0f%%", s.EscalationRate*100)},
		{"Mean sentiment score", mean},
		{"Consistency warnings", s.Warnings},
	}
	for _, ic := range s.TopIssues {
		rows = append(rows, []any{"Issue: " + ic.Issue, ic.Count})
	}
	for i := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cellName, &rows[i]); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
