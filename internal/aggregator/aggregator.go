package aggregator

import (
	"sort"
	"strings"

	"call-insights-go/internal/history"
	"call-insights-go/internal/types"
)

// TopIssueLimit bounds Summary.TopIssues.
const TopIssueLimit = 5

type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// Summary is the session overview. Rates and means are computed over the
// entries that actually carry the field; MeanScore is nil when no entry
// had a score.
type Summary struct {
	Total          int                     `json:"total"`
	Analyzed       int                     `json:"analyzed"`
	Unparsed       int                     `json:"unparsed"`
	BySentiment    map[types.Sentiment]int `json:"by_sentiment"`
	ByOutcome      map[types.Outcome]int   `json:"by_outcome"`
	Escalations    int                     `json:"escalations"`
	EscalationRate float64                 `json:"escalation_rate"`
	MeanScore      *float64                `json:"mean_score,omitempty"`
	ScoredCalls    int                     `json:"scored_calls"`
	TopIssues      []IssueCount            `json:"top_issues"`
	Warnings       int                     `json:"warnings"`
}

func Summarize(entries []history.Entry) Summary {
	s := Summary{
		Total:       len(entries),
		BySentiment: map[types.Sentiment]int{},
		ByOutcome:   map[types.Outcome]int{},
		TopIssues:   []IssueCount{},
	}

	escalationKnown := 0
	scoreSum := 0
	issues := map[string]*IssueCount{}
	var issueOrder []string

	for _, e := range entries {
		if e.Status != history.StatusAnalyzed || e.Analysis == nil {
			s.Unparsed++
			continue
		}
		s.Analyzed++
		a := e.Analysis
		if a.FinalSentiment != "" {
			s.BySentiment[a.FinalSentiment]++
		}
		if a.Outcome != "" {
			s.ByOutcome[a.Outcome]++
		}
		switch a.EscalationRequired {
		case types.EscalationYes:
			s.Escalations++
			escalationKnown++
		case types.EscalationNo:
			escalationKnown++
		}
		if score, ok := a.Score(); ok {
			scoreSum += score
			s.ScoredCalls++
		}
		s.Warnings += len(a.Warnings)

		for _, issue := range a.KeyIssues {
			key := strings.ToLower(strings.TrimSpace(issue))
			if key == "" {
				continue
			}
			if ic, ok := issues[key]; ok {
				ic.Count++
				continue
			}
			issues[key] = &IssueCount{Issue: strings.TrimSpace(issue), Count: 1}
			issueOrder = append(issueOrder, key)
		}
	}

	if escalationKnown > 0 {
		s.EscalationRate = float64(s.Escalations) / float64(escalationKnown)
	}
	if s.ScoredCalls > 0 {
		mean := float64(scoreSum) / float64(s.ScoredCalls)
		s.MeanScore = &mean
	}

	for _, key := range issueOrder {
		s.TopIssues = append(s.TopIssues, *issues[key])
	}
	sort.SliceStable(s.TopIssues, func(i, j int) bool { return s.TopIssues[i].Count > s.TopIssues[j].Count })
	if len(s.TopIssues) > TopIssueLimit {
		s.TopIssues = s.TopIssues[:TopIssueLimit]
	}
	return s
}

// DominantSentiment returns the most frequent sentiment and its share of
// the analyzed calls that reported one. Ties go to the more negative value.
func (s Summary) DominantSentiment() (types.Sentiment, float64) {
	order := []types.Sentiment{types.SentimentNegative, types.SentimentMixed, types.SentimentNeutral, types.SentimentPositive}
	var (
		best  types.Sentiment
		count int
		total int
	)
	for _, sent := range order {
		n := s.BySentiment[sent]
		total += n
		if n > count {
			best, count = sent, n
		}
	}
	if total == 0 {
		return "", 0
	}
	return best, float64(count) / float64(total)
}
