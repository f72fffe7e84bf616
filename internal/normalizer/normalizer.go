// Package normalizer turns the analysis gateway's free-form reply into a
// types.CallAnalysis.
//
// Three reply shapes are handled: a JSON object (optionally inside a
// fenced code block), the line-oriented legacy template, and anything else,
// which is reported as a *NormalizationFailure carrying the raw text.
// Normalize never fills in defaults for fields the reply did not carry.
package normalizer

import (
	"fmt"
	"strings"

	"call-insights-go/internal/types"
)

const fence = "```"

// NormalizationFailure reports a reply with no recognizable structure.
// Raw is the reply exactly as received so it can be shown to an operator.
type NormalizationFailure struct {
	Raw string
}

func (e *NormalizationFailure) Error() string {
	return fmt.Sprintf("normalize: no recognizable structure in reply (%d bytes)", len(e.Raw))
}

// Normalize converts raw into a CallAnalysis. The only error it returns is
// *NormalizationFailure.
func Normalize(raw string) (types.CallAnalysis, error) {
	body := Unwrap(raw)

	rec, ok := decodeJSON(body)
	if !ok {
		rec, ok = parseLegacy(body)
	}
	if !ok {
		return types.CallAnalysis{}, &NormalizationFailure{Raw: raw}
	}
	crossCheck(rec)
	return rec.build(), nil
}

// Unwrap trims whitespace and removes an opening fence (with or without a
// json tag, which may follow the fence after spaces) and a closing fence.
// Text between the fences is untouched.
func Unwrap(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, fence) {
		s = strings.TrimLeft(s[len(fence):], " \t")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	if strings.HasSuffix(s, fence) {
		s = s[:len(s)-len(fence)]
	}
	return strings.TrimSpace(s)
}

// record accumulates fields while a reply is being read. It never escapes
// this package; callers only see the CallAnalysis produced by build.
type record struct {
	shape      types.ReplyShape
	sentiment  types.Sentiment
	score      *int
	summary    string
	issues     []string
	escalation types.Escalation
	outcome    types.Outcome
	source     string
	warnings   []types.Warning
}

// populated reports whether any field carries a value. Warnings alone do
// not make a record.
func (r *record) populated() bool {
	return r.sentiment != "" || r.score != nil || r.summary != "" ||
		len(r.issues) > 0 || r.escalation != "" || r.outcome != ""
}

func (r *record) warn(code, format string, args ...any) {
	r.warnings = append(r.warnings, types.Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (r *record) setSentiment(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	s, ok := types.ParseSentiment(v)
	if !ok {
		r.warn(types.WarnSentimentUnrecognized, "final sentiment %q is not one of Positive, Neutral, Negative, Mixed", v)
		return
	}
	r.sentiment = s
}

func (r *record) setEscalation(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	e, ok := types.ParseEscalation(v)
	if !ok {
		r.warn(types.WarnEscalationUnrecognized, "escalation value %q is not Yes or No", v)
		return
	}
	r.escalation = e
}

func (r *record) setOutcome(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	o, ok := types.ParseOutcome(v)
	if !ok {
		r.warn(types.WarnOutcomeUnrecognized, "outcome %q is not resolved or unresolved", v)
		return
	}
	r.outcome = o
	r.source = types.OutcomeSourceReply
}

// addIssue appends one issue and reports whether it was kept.
func (r *record) addIssue(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || len(r.issues) >= types.MaxKeyIssues {
		return false
	}
	r.issues = append(r.issues, v)
	return true
}

func (r *record) build() types.CallAnalysis {
	out := types.CallAnalysis{
		FinalSentiment:     r.sentiment,
		ResolutionSummary:  r.summary,
		EscalationRequired: r.escalation,
		Outcome:            r.outcome,
		OutcomeSource:      r.source,
		Shape:              r.shape,
	}
	if r.score != nil {
		v := *r.score
		out.SentimentScore = &v
	}
	if len(r.issues) > 0 {
		out.KeyIssues = append([]string(nil), r.issues...)
	}
	if len(r.warnings) > 0 {
		out.Warnings = append([]types.Warning(nil), r.warnings...)
	}
	return out
}

// crossCheck derives the outcome from the escalation flag when the reply
// did not supply one, flags a reply outcome that disagrees with it, and
// flags a score outside the sentiment's band.
func crossCheck(r *record) {
	if r.escalation != "" {
		derived := types.OutcomeFor(r.escalation)
		switch {
		case r.outcome == "":
			r.outcome = derived
			r.source = types.OutcomeSourceDerived
		case r.outcome != derived:
			r.warn(types.WarnOutcomeMismatch,
				"reply outcome %q disagrees with escalation_required %q (implies %q)",
				r.outcome, r.escalation, derived)
		}
	}

	if r.score != nil && r.sentiment != "" {
		lo, hi, ok := r.sentiment.Band()
		if ok && (*r.score < lo || *r.score > hi) {
			r.warn(types.WarnScoreOutOfBand,
				"sentiment_score %d is outside the %d-%d band for %s",
				*r.score, lo, hi, r.sentiment)
		}
	}
}
