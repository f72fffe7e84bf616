// Package transcription wraps the speech-to-text gateways. Every backend is
// a single blocking call; failures are returned as-is and never retried.
package transcription

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// Transcriber turns an audio file into text. language is a hint such as
// "ar" or "en"; an empty hint lets the backend detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (types.Transcript, error)
}

// New builds the backend selected by cfg.Transcription.Backend.
func New(cfg *config.Config, log *logger.Logger) (Transcriber, error) {
	tc := cfg.Transcription
	switch tc.Backend {
	case config.BackendMock:
		return NewMock(""), nil
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   tc.Model,
			Timeout: tc.HTTPTimeout,
		})
	case config.BackendService:
		return NewService(ServiceOptions{
			BaseURL:      tc.ServiceURL,
			PollInterval: tc.PollInterval,
			MaxPolls:     tc.MaxPolls,
			HTTPClient:   &http.Client{Timeout: tc.HTTPTimeout},
			Logger:       log,
		})
	}
	return nil, fmt.Errorf("transcription: unknown backend %q", tc.Backend)
}

const mockTranscript = "Agent: Thank you for calling, how can I help? " +
	"Customer: I was charged twice for my subscription this month and I want a refund. " +
	"Agent: I see the duplicate charge, I have issued the refund and you will see it in three to five days. " +
	"Customer: Great, thank you for sorting that out."

// Mock returns a fixed transcript without touching the audio.
type Mock struct {
	Text string
}

func NewMock(text string) *Mock {
	if strings.TrimSpace(text) == "" {
		text = mockTranscript
	}
	return &Mock{Text: text}
}

func (m *Mock) Transcribe(ctx context.Context, audioPath, language string) (types.Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return types.Transcript{}, fmt.Errorf("mock transcribe: %w", err)
	}
	return types.Transcript{
		Text:     m.Text,
		Language: language,
		Segments: []types.Segment{{Text: m.Text}},
	}, nil
}
