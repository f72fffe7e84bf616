package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"call-insights-go/internal/history"
	"call-insights-go/internal/types"
)

func analyzed(sent types.Sentiment, score *int, esc types.Escalation, issues ...string) history.Entry {
	a := types.CallAnalysis{
		FinalSentiment:     sent,
		SentimentScore:     score,
		EscalationRequired: esc,
		KeyIssues:          issues,
		Shape:              types.ShapeJSON,
	}
	if esc != "" {
		a.Outcome = types.OutcomeFor(esc)
	}
	return history.Entry{Status: history.StatusAnalyzed, Analysis: &a}
}

func intp(v int) *int { return &v }

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.Total)
	require.Nil(t, s.MeanScore)
	require.Zero(t, s.EscalationRate)
	require.Empty(t, s.TopIssues)
	sent, share := s.DominantSentiment()
	require.Empty(t, sent)
	require.Zero(t, share)
}

func TestSummarizeCounts(t *testing.T) {
	withWarning := analyzed(types.SentimentPositive, intp(20), types.EscalationNo)
	withWarning.Analysis.Warnings = []types.Warning{{Code: types.WarnScoreOutOfBand}}

	entries := []history.Entry{
		analyzed(types.SentimentNegative, intp(30), types.EscalationYes, "Billing", "Refund"),
		analyzed(types.SentimentNegative, nil, types.EscalationYes, "billing "),
		analyzed(types.SentimentNeutral, intp(0), "", "Login"),
		withWarning,
		{Status: history.StatusUnparsed, RawReply: "???"},
	}
	s := Summarize(entries)

	require.Equal(t, 5, s.Total)
	require.Equal(t, 4, s.Analyzed)
	require.Equal(t, 1, s.Unparsed)
	require.Equal(t, 2, s.BySentiment[types.SentimentNegative])
	require.Equal(t, 1, s.BySentiment[types.SentimentNeutral])
	require.Equal(t, 2, s.ByOutcome[types.OutcomeUnresolved])
	require.Equal(t, 1, s.ByOutcome[types.OutcomeResolved])
	require.Equal(t, 2, s.Escalations)
	require.InDelta(t, 2.0/3.0, s.EscalationRate, 1e-9)

	// the unscored entry does not drag the mean toward zero; the zero score counts.
	require.Equal(t, 3, s.ScoredCalls)
	require.NotNil(t, s.MeanScore)
	require.InDelta(t, 50.0/3.0, *s.MeanScore, 1e-9)

	require.Equal(t, 1, s.Warnings)
	require.Equal(t, []IssueCount{{"Billing", 2}, {"Refund", 1}, {"Login", 1}}, s.TopIssues)
}

func TestSummarizeTopIssuesLimit(t *testing.T) {
	var entries []history.Entry
	for _, issue := range []string{"a", "b", "c", "d", "e", "f", "f"} {
		entries = append(entries, analyzed(types.SentimentNeutral, nil, types.EscalationNo, issue))
	}
	s := Summarize(entries)
	require.Len(t, s.TopIssues, TopIssueLimit)
	require.Equal(t, IssueCount{"f", 2}, s.TopIssues[0])
	require.Equal(t, "a", s.TopIssues[1].Issue)
}

func TestDominantSentimentTieGoesNegative(t *testing.T) {
	s := Summarize([]history.Entry{
		analyzed(types.SentimentPositive, nil, ""),
		analyzed(types.SentimentNegative, nil, ""),
	})
	sent, share := s.DominantSentiment()
	require.Equal(t, types.SentimentNegative, sent)
	require.InDelta(t, 0.5, share, 1e-9)
}
