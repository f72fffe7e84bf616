package normalizer

import (
	"regexp"
	"strings"

	"call-insights-go/internal/types"
)

const (
	labelSentiment  = "Final Customer Sentiment:"
	labelSummary    = "Resolution Summary:"
	labelEscalation = "Escalation Required:"
)

// placeholderIssue matches the template's own "[Issue 1]" lines echoed back.
var placeholderIssue = regexp.MustCompile(`(?i)^issue\s*\d+$`)

// parseLegacy reads the line-oriented template. It reports false when no
// line produced a usable field.
func parseLegacy(body string) (*record, bool) {
	r := &record{shape: types.ShapeLegacy}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, ok := labelValue(line, labelSentiment); ok {
			r.setSentiment(unbracket(v))
			continue
		}
		if v, ok := labelValue(line, labelSummary); ok {
			if v != "" {
				r.summary = v
			}
			continue
		}
		if v, ok := labelValue(line, labelEscalation); ok {
			r.setEscalation(unbracket(v))
			continue
		}
		if len(line) >= 2 && strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			issue := strings.TrimSpace(line[1 : len(line)-1])
			if issue == "" || placeholderIssue.MatchString(issue) {
				continue
			}
			r.addIssue(issue)
		}
	}
	return r, r.populated()
}

// labelValue returns the trimmed text after the label's colon.
func labelValue(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	return strings.TrimSpace(line[len(label):]), true
}

// unbracket strips template brackets a model left around an enum ("[No]").
func unbracket(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		return strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}
