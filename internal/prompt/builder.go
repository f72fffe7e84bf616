// Package prompt renders the fixed call-analysis instruction sent to the
// analysis gateway. Transcripts are substituted verbatim: nothing in the
// transcript is escaped, so text that imitates the template's own markers
// reaches the model unchanged.
package prompt

import (
	"fmt"
	"strings"
)

const (
	StyleJSON   = "json"
	StyleLegacy = "legacy"
)

// EscalationPolicy is embedded in both templates word for word.
const EscalationPolicy = `Escalation Required: Flag a call as 'Yes' only if the issue remains unresolved at the end of the call. An issue is considered resolved if the agent provides a solution (like a credit, a refund, or a successful explanation) and the customer's final sentiment is Positive or Neutral.
Specifically, flag as 'Yes' if:
- The agent is unable to resolve the issue.
- The customer is still audibly dissatisfied or angry at the end of the call.
- The customer explicitly requests to speak with a manager and the issue is not resolved.
- The issue requires an action that was not confirmed as completed during the call (e.g., "a technical team will call you back").

Do not flag for escalation if the customer was initially angry but was successfully de-escalated and satisfied by the agent's solution.`

const jsonTemplate = `You are an expert AI assistant tasked with analyzing customer service call transcripts. Your primary goal is to understand the full context of the conversation, from the initial problem to the final resolution.

Analyze the following customer call transcript and return STRICT JSON with exactly these fields:

{
  "final_customer_sentiment": "Positive|Neutral|Negative|Mixed",
  "sentiment_score": <integer 0-100>,
  "resolution_summary": "<one sentence>",
  "key_issues": ["<issue>", ...up to 5],
  "escalation_required": "Yes|No",
  "outcome": "resolved|unresolved"
}

Customer Call Transcript:
%s

Guidelines for analysis:

final_customer_sentiment: Determine the customer's emotional state **at the end of the call**. This is the most important sentiment metric.

sentiment_score: 0-30 very negative, 31-45 negative, 46-60 neutral, 61-85 positive, 86-100 very positive. The score must agree with final_customer_sentiment.

resolution_summary: Briefly describe the action the agent took that led to the final sentiment.

key_issues: Identify the core reasons the customer initially contacted support, in the order they were mentioned.

%s

outcome: "resolved" when escalation_required is "No", otherwise "unresolved".

Return only the JSON object. Do not include any prose, explanation, or conversational text outside the JSON object.
`

const legacyTemplate = `You are an expert AI assistant tasked with analyzing customer service call transcripts. Your primary goal is to understand the full context of the conversation, from the initial problem to the final resolution.

Analyze the following customer call transcript and provide the following output:

Final Customer Sentiment: [Positive/Neutral/Negative/Mixed]
Resolution Summary: [A brief one-sentence summary of how the issue was resolved, or if it was left unresolved.]
Key Issues Mentioned:
[Issue 1]
[Issue 2]
(List up to 5, or fewer if not applicable)
Escalation Required: [Yes/No]

Customer Call Transcript:
%s

Guidelines for analysis:

Final Customer Sentiment: Determine the customer's emotional state **at the end of the call**. This is the most important sentiment metric.

Resolution Summary: Briefly describe the action the agent took that led to the final sentiment.

Key Issues Mentioned: Identify the core reasons the customer initially contacted support.

%s

Ensure your output strictly adheres to the requested format. Do not include any additional commentary or conversational text.
`

// Builder renders a transcript into an instruction string.
type Builder func(transcript string) string

// Build renders the strict-JSON analysis prompt.
func Build(transcript string) string {
	return fmt.Sprintf(jsonTemplate, transcript, EscalationPolicy)
}

// BuildLegacy renders the line-oriented prompt the dashboard shipped with first.
func BuildLegacy(transcript string) string {
	return fmt.Sprintf(legacyTemplate, transcript, EscalationPolicy)
}

// ForStyle returns the builder for a configured prompt style.
func ForStyle(style string) (Builder, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", StyleJSON:
		return Build, nil
	case StyleLegacy:
		return BuildLegacy, nil
	}
	return nil, fmt.Errorf("unknown prompt style %q", style)
}
