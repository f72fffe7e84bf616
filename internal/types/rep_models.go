package types

// Rep is one entry of the representative directory shown on the dashboard.
type Rep struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SentimentScore int       `json:"sentiment_score"`
	Escalations    int       `json:"escalations"`
	Calls          []RepCall `json:"calls"`
}

type RepCall struct {
	Date       string       `json:"date"`
	Transcript string       `json:"transcript"`
	Sentiment  RepSentiment `json:"sentiment"`
}

// RepSentiment is the per-call sentiment block of a historical call.
// Outcome is "resolved" or "escalated"; Score is a 0-1 fraction.
type RepSentiment struct {
	Outcome string  `json:"outcome"`
	Score   float64 `json:"score"`
}
