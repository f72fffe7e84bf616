package types

import "strings"

// Sentiment is the customer's emotional state at the end of the call.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
	SentimentMixed    Sentiment = "Mixed"
)

// ParseSentiment resolves a reply value case-insensitively.
func ParseSentiment(s string) (Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive, true
	case "neutral":
		return SentimentNeutral, true
	case "negative":
		return SentimentNegative, true
	case "mixed":
		return SentimentMixed, true
	}
	return "", false
}

// Band returns the inclusive score range expected for the sentiment.
func (s Sentiment) Band() (lo, hi int, ok bool) {
	switch s {
	case SentimentNegative:
		return 0, 45, true
	case SentimentNeutral, SentimentMixed:
		return 31, 70, true
	case SentimentPositive:
		return 56, 100, true
	}
	return 0, 0, false
}

type Escalation string

const (
	EscalationYes Escalation = "Yes"
	EscalationNo  Escalation = "No"
)

// ParseEscalation accepts yes/no/true/false, optionally followed by prose
// ("No - the refund was issued").
func ParseEscalation(s string) (Escalation, bool) {
	word := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexFunc(word, func(r rune) bool { return r < 'a' || r > 'z' }); i >= 0 {
		word = word[:i]
	}
	switch word {
	case "yes", "true":
		return EscalationYes, true
	case "no", "false":
		return EscalationNo, true
	}
	return "", false
}

// Outcome is resolved iff no escalation is required.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
)

func ParseOutcome(s string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resolved":
		return OutcomeResolved, true
	case "unresolved", "escalated":
		return OutcomeUnresolved, true
	}
	return "", false
}

// OutcomeFor derives the outcome implied by an escalation flag.
func OutcomeFor(e Escalation) Outcome {
	if e == EscalationNo {
		return OutcomeResolved
	}
	return OutcomeUnresolved
}

type ReplyShape string

const (
	ShapeJSON   ReplyShape = "json"
	ShapeLegacy ReplyShape = "legacy"
)

const (
	OutcomeSourceReply   = "reply"
	OutcomeSourceDerived = "derived"
)

// Warning codes. A warning never invalidates the record it is attached to.
const (
	WarnOutcomeMismatch        = "outcome_mismatch"
	WarnScoreOutOfBand         = "score_out_of_band"
	WarnScoreInvalid           = "score_invalid"
	WarnSentimentUnrecognized  = "sentiment_unrecognized"
	WarnEscalationUnrecognized = "escalation_unrecognized"
	WarnOutcomeUnrecognized    = "outcome_unrecognized"
	WarnKeyIssuesTruncated     = "key_issues_truncated"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxKeyIssues caps the issues kept per analysis.
const MaxKeyIssues = 5

// CallAnalysis is the structured judgment for one call. Zero-valued fields
// mean "unknown"; a nil SentimentScore is never the same as a score of 0.
type CallAnalysis struct {
	FinalSentiment     Sentiment  `json:"final_customer_sentiment,omitempty"`
	SentimentScore     *int       `json:"sentiment_score,omitempty"`
	ResolutionSummary  string     `json:"resolution_summary,omitempty"`
	KeyIssues          []string   `json:"key_issues,omitempty"`
	EscalationRequired Escalation `json:"escalation_required,omitempty"`
	Outcome            Outcome    `json:"outcome,omitempty"`
	OutcomeSource      string     `json:"outcome_source,omitempty"`
	Shape              ReplyShape `json:"shape"`
	Warnings           []Warning  `json:"warnings,omitempty"`
}

// Score returns the sentiment score and whether the reply carried one.
func (a CallAnalysis) Score() (int, bool) {
	if a.SentimentScore == nil {
		return 0, false
	}
	return *a.SentimentScore, true
}

// HasWarning reports whether a warning with the given code was raised.
func (a CallAnalysis) HasWarning(code string) bool {
	for _, w := range a.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with a.
func (a CallAnalysis) Clone() CallAnalysis {
	out := a
	if a.SentimentScore != nil {
		v := *a.SentimentScore
		out.SentimentScore = &v
	}
	if a.KeyIssues != nil {
		out.KeyIssues = append([]string(nil), a.KeyIssues...)
	}
	if a.Warnings != nil {
		out.Warnings = append([]Warning(nil), a.Warnings...)
	}
	return out
}

// Usage holds the token counters reported by the analysis gateway.
type Usage struct {
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
}

type Segment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}
