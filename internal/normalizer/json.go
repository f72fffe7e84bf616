package normalizer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"call-insights-go/internal/types"
)

var jsonKeys = []string{
	"final_customer_sentiment",
	"sentiment_score",
	"resolution_summary",
	"key_issues",
	"escalation_required",
	"outcome",
}

// decodeJSON is the preferred path. It succeeds only for a JSON object in
// which at least one recognized key held a usable value; unrecognized keys
// are ignored.
func decodeJSON(body string) (*record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil || fields == nil {
		return nil, false
	}
	found := false
	for _, k := range jsonKeys {
		if _, ok := fields[k]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	r := &record{shape: types.ShapeJSON}
	if v, ok := rawString(fields["final_customer_sentiment"]); ok {
		r.setSentiment(v)
	}
	if raw, ok := fields["sentiment_score"]; ok && !isNull(raw) {
		if score, ok := rawScore(raw); ok {
			r.score = &score
		} else {
			r.warn(types.WarnScoreInvalid, "sentiment_score %s is not an integer in 0-100", strings.TrimSpace(string(raw)))
		}
	}
	if v, ok := rawString(fields["resolution_summary"]); ok {
		r.summary = strings.TrimSpace(v)
	}
	if raw, ok := fields["key_issues"]; ok && !isNull(raw) {
		var issues []string
		if err := json.Unmarshal(raw, &issues); err == nil {
			dropped := 0
			for _, issue := range issues {
				if strings.TrimSpace(issue) == "" {
					continue
				}
				if !r.addIssue(issue) {
					dropped++
				}
			}
			if dropped > 0 {
				r.warn(types.WarnKeyIssuesTruncated, "kept %d key issues, dropped %d", types.MaxKeyIssues, dropped)
			}
		}
	}
	if raw, ok := fields["escalation_required"]; ok && !isNull(raw) {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			if b {
				r.escalation = types.EscalationYes
			} else {
				r.escalation = types.EscalationNo
			}
		} else if v, ok := rawString(raw); ok {
			r.setEscalation(v)
		}
	}
	if v, ok := rawString(fields["outcome"]); ok {
		r.setOutcome(v)
	}
	return r, r.populated()
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func rawString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// rawScore accepts an integral number or a numeric string within 0-100.
func rawScore(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		s, ok := rawString(raw)
		if !ok {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	if f != math.Trunc(f) || f < 0 || f > 100 {
		return 0, false
	}
	return int(f), true
}
