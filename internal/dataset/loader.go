package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// CallsSheet is the optional sheet holding each rep's historical calls.
const CallsSheet = "calls"

// LoadReps reads a rep directory workbook. The first sheet has one rep per
// row; columns are found by header name (id, name, score, escalations). An
// optional "calls" sheet adds historical calls keyed by rep id.
func LoadReps(path string) ([]types.Rep, error) {
	log := logger.New().Component("dataset.loader").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	idIdx, nameIdx, scoreIdx, escIdx := -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case idIdx == -1 && (l == "id" || strings.Contains(l, "rep id") || strings.Contains(l, "rep_id")):
			idIdx = i
		case nameIdx == -1 && strings.Contains(l, "name"):
			nameIdx = i
		case scoreIdx == -1 && strings.Contains(l, "score"):
			scoreIdx = i
		case escIdx == -1 && strings.Contains(l, "escalation"):
			escIdx = i
		}
	}
	if idIdx == -1 || nameIdx == -1 {
		return nil, fmt.Errorf("header must name an id and a name column, got %v", rows[0])
	}

	var out []types.Rep
	index := map[string]int{}
	for i, r := range rows[1:] {
		rep := types.Rep{ID: cell(r, idIdx), Name: cell(r, nameIdx)}
		if rep.ID == "" {
			continue
		}
		if v := cell(r, scoreIdx); v != "" {
			if rep.SentimentScore, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: score %q: %w", i+2, v, err)
			}
		}
		if v := cell(r, escIdx); v != "" {
			if rep.Escalations, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: escalations %q: %w", i+2, v, err)
			}
		}
		index[rep.ID] = len(out)
		out = append(out, rep)
	}

	if idx, err := f.GetSheetIndex(CallsSheet); err == nil && idx >= 0 {
		calls, err := loadCalls(f)
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			i, ok := index[c.repID]
			if !ok {
				log.WithField("rep_id", c.repID).Warn("call references unknown rep; skipped")
				continue
			}
			out[i].Calls = append(out[i].Calls, c.call)
		}
	}

	log.WithField("reps", len(out)).Info("rep directory loaded")
	return out, nil
}

type repCall struct {
	repID string
	call  types.RepCall
}

func loadCalls(f *excelize.File) ([]repCall, error) {
	rows, err := f.GetRows(CallsSheet)
	if err != nil {
		return nil, fmt.Errorf("read calls: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	repIdx, dateIdx, textIdx, outcomeIdx, scoreIdx := -1, -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case repIdx == -1 && strings.Contains(l, "rep"):
			repIdx = i
		case dateIdx == -1 && strings.Contains(l, "date"):
			dateIdx = i
		case textIdx == -1 && (strings.Contains(l, "transcript") || strings.Contains(l, "text")):
			textIdx = i
		case outcomeIdx == -1 && strings.Contains(l, "outcome"):
			outcomeIdx = i
		case scoreIdx == -1 && strings.Contains(l, "score"):
			scoreIdx = i
		}
	}
	if repIdx == -1 {
		return nil, fmt.Errorf("calls sheet needs a rep id column")
	}

	var out []repCall
	for i, r := range rows[1:] {
		id := cell(r, repIdx)
		if id == "" {
			continue
		}
		c := repCall{repID: id, call: types.RepCall{
			Date:       cell(r, dateIdx),
			Transcript: cell(r, textIdx),
			Sentiment:  types.RepSentiment{Outcome: strings.ToLower(cell(r, outcomeIdx))},
		}}
		if v := cell(r, scoreIdx); v != "" {
			score, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("calls row %d: score %q: %w", i+2, v, err)
			}
			c.call.Sentiment.Score = score
		}
		out = append(out, c)
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
