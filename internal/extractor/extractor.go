// Package extractor sends an analysis prompt to a text-generation gateway
// and returns the raw reply. Interpreting the reply is the normalizer's job.
package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// Reply is the unparsed model output plus the token counters the gateway
// reported. Usage is zero when the backend does not report it.
type Reply struct {
	Text  string
	Usage types.Usage
}

// Generator submits one prompt and waits for the reply. Implementations
// make exactly one request per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Reply, error)
}

// New builds the backend selected by cfg.Analysis.Backend.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Generator, error) {
	ac := cfg.Analysis
	switch ac.Backend {
	case config.BackendMock:
		return NewMock(""), nil
	case config.BackendGemini:
		return NewGemini(GeminiOptions{
			APIKey:     ac.APIKey,
			Model:      ac.Model,
			BaseURL:    ac.BaseURL,
			HTTPClient: &http.Client{Timeout: ac.HTTPTimeout},
		})
	case config.BackendOpenAI:
		key := ac.APIKey
		if key == "" {
			key = cfg.OpenAI.APIKey
		}
		base := ac.BaseURL
		if base == "" {
			base = cfg.OpenAI.BaseURL
		}
		return NewOpenAI(OpenAIOptions{
			APIKey:  key,
			BaseURL: base,
			Model:   ac.Model,
			Timeout: ac.HTTPTimeout,
		})
	case config.BackendBedrock:
		log.Component("extractor").WithField("region", cfg.Bedrock.Region).Info("using bedrock analysis backend")
		return NewBedrock(ctx, BedrockOptions{
			Region:          cfg.Bedrock.Region,
			Profile:         cfg.Bedrock.Profile,
			AccessKeyID:     cfg.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Bedrock.SecretAccessKey,
			ModelID:         ac.Model,
			MaxTokens:       cfg.Bedrock.MaxTokens,
			Endpoint:        ac.BaseURL,
		})
	}
	return nil, fmt.Errorf("extractor: unknown backend %q", ac.Backend)
}

const mockReply = `{
  "final_customer_sentiment": "Positive",
  "sentiment_score": 82,
  "resolution_summary": "The duplicate subscription charge was refunded during the call.",
  "key_issues": ["Duplicate subscription charge", "Refund timeline"],
  "escalation_required": "No",
  "outcome": "resolved"
}`

// Mock answers every prompt with the same well-formed reply.
type Mock struct {
	Text string
}

func NewMock(text string) *Mock {
	if strings.TrimSpace(text) == "" {
		text = mockReply
	}
	return &Mock{Text: text}
}

func (m *Mock) Generate(ctx context.Context, prompt string) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: m.Text,
		Usage: types.Usage{
			PromptTokens:   len(strings.Fields(prompt)),
			ResponseTokens: len(strings.Fields(m.Text)),
		},
	}, nil
}
