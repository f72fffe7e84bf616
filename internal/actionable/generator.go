package actionable

import (
	"fmt"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/types"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// Thresholds for Generate.
const (
	MinCalls            = 3
	EscalationThreshold = 0.35
	NegativeThreshold   = 0.5
	RecurringThreshold  = 3
)

// Generate turns a session summary into one coaching card. Rules are
// checked in order and the first match wins.
func Generate(s aggregator.Summary) ActionCard {
	if s.Analyzed < MinCalls {
		return ActionCard{
			Insight: fmt.Sprintf("Only %d analyzed call(s) this session", s.Analyzed),
			Action:  "Analyze more calls before drawing conclusions",
			Impact:  "No intervention yet",
		}
	}
	if s.EscalationRate >= EscalationThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("High escalation rate (%.0f%% of calls)", s.EscalationRate*100),
			Action:  "Review escalated calls with the team lead; refresh de-escalation and ownership coaching",
			Impact:  "Reduce manager hand-offs and repeat contacts",
		}
	}
	if sent, share := s.DominantSentiment(); sent == types.SentimentNegative && share >= NegativeThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Negative sentiment dominates (%.0f%% of calls)", share*100),
			Action:  "Audit call openings and hold times; pair agents with top performers for shadowing",
			Impact:  "Lift customer sentiment and retention",
		}
	}
	if len(s.TopIssues) > 0 && s.TopIssues[0].Count >= RecurringThreshold {
		top := s.TopIssues[0]
		return ActionCard{
			Insight: fmt.Sprintf("Recurring issue: %q raised in %d calls", top.Issue, top.Count),
			Action:  "Publish a knowledge-base answer for this issue and route it to the owning team",
			Impact:  "Shorter handle time on repeat questions",
		}
	}
	return ActionCard{
		Insight: "No strong negative pattern detected",
		Action:  "Monitor and collect more data",
		Impact:  "Low immediate intervention",
	}
}
