// Package processor runs one analysis request end to end: stash the upload,
// transcribe it, build the prompt, ask the analysis gateway, normalize the
// reply and record it in the session history. Each step runs only after the
// previous one finished; nothing is retried.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"call-insights-go/internal/extractor"
	"call-insights-go/internal/history"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/normalizer"
	"call-insights-go/internal/prompt"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

// DefaultSession is used when a caller supplies no session id.
const DefaultSession = "local"

// Upload is one audio file submitted for analysis.
type Upload struct {
	Filename  string
	Body      io.Reader
	SessionID string
}

// Result is what the presentation layer shows for one call. Analysis is nil
// when Status is history.StatusUnparsed; RawReply then holds the reply
// exactly as the gateway returned it.
type Result struct {
	ID         string              `json:"id"`
	Status     string              `json:"status"`
	Filename   string              `json:"filename,omitempty"`
	Transcript string              `json:"transcript"`
	Analysis   *types.CallAnalysis `json:"analysis,omitempty"`
	RawReply   string              `json:"raw_reply"`
	Usage      types.Usage         `json:"usage"`
	CreatedAt  time.Time           `json:"created_at"`
	DurationMs int64               `json:"duration_ms"`
}

type Options struct {
	Transcriber transcription.Transcriber
	Generator   extractor.Generator
	Prompt      prompt.Builder
	History     history.Store
	Metrics     *metrics.Recorder
	Logger      *logger.Logger
	Language    string
	TempDir     string
}

type Service struct {
	transcriber transcription.Transcriber
	generator   extractor.Generator
	prompt      prompt.Builder
	history     history.Store
	metrics     *metrics.Recorder
	log         *logger.Logger
	language    string
	tempDir     string
	now         func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Transcriber == nil {
		return nil, errors.New("processor: transcriber required")
	}
	if opts.Generator == nil {
		return nil, errors.New("processor: generator required")
	}
	s := &Service{
		transcriber: opts.Transcriber,
		generator:   opts.Generator,
		prompt:      opts.Prompt,
		history:     opts.History,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		language:    opts.Language,
		tempDir:     opts.TempDir,
		now:         time.Now,
	}
	if s.prompt == nil {
		s.prompt = prompt.Build
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.log == nil {
		s.log = logger.New()
	}
	s.log = s.log.Component("processor")
	return s, nil
}

// Analyze processes an uploaded audio file. The scratch copy of the upload
// is removed before Analyze returns, whatever the outcome.
func (s *Service) Analyze(ctx context.Context, up Upload) (Result, error) {
	start := s.now()
	if err := CheckFormat(up.Filename); err != nil {
		return Result{}, err
	}

	path, err := s.stash(up)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.WithError(rmErr).WithField("path", path).Warn("failed to remove scratch upload")
		}
	}()

	log := s.log.WithField("filename", up.Filename)
	log.Info("transcribing upload")

	t0 := time.Now()
	tr, err := s.transcriber.Transcribe(ctx, path, s.language)
	s.metrics.ObserveGateway(metrics.GatewayTranscription, time.Since(t0), err)
	if err != nil {
		s.metrics.CountAnalysis("gateway_error")
		log.WithError(err).Error("transcription failed")
		return Result{}, &GatewayError{Gateway: metrics.GatewayTranscription, Err: err}
	}

	return s.analyze(ctx, up.Filename, tr.Text, up.SessionID, start)
}

// AnalyzeTranscript runs the chain for a transcript the caller already has.
func (s *Service) AnalyzeTranscript(ctx context.Context, transcript, sessionID string) (Result, error) {
	return s.analyze(ctx, "", transcript, sessionID, s.now())
}

// History returns the session's past results, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]history.Entry, error) {
	return s.history.List(ctx, sessionOrDefault(sessionID))
}

func (s *Service) analyze(ctx context.Context, filename, transcript, sessionID string, start time.Time) (Result, error) {
	session := sessionOrDefault(sessionID)
	log := s.log.WithField("session", session)

	if strings.TrimSpace(transcript) == "" {
		s.metrics.CountAnalysis("empty_transcript")
		log.Warn("transcript is empty; analysis skipped")
		return Result{}, ErrEmptyTranscript
	}

	t0 := time.Now()
	reply, err := s.generator.Generate(ctx, s.prompt(transcript))
	s.metrics.ObserveGateway(metrics.GatewayAnalysis, time.Since(t0), err)
	if err != nil {
		s.metrics.CountAnalysis("gateway_error")
		log.WithError(err).Error("analysis gateway failed")
		return Result{}, &GatewayError{Gateway: metrics.GatewayAnalysis, Err: err}
	}
	s.metrics.AddTokens(reply.Usage.PromptTokens, reply.Usage.ResponseTokens)
	log.WithField("prompt_tokens", reply.Usage.PromptTokens).
		WithField("response_tokens", reply.Usage.ResponseTokens).
		Info("analysis reply received")

	res := Result{
		ID:         uuid.NewString(),
		Filename:   filename,
		Transcript: transcript,
		RawReply:   reply.Text,
		Usage:      reply.Usage,
		CreatedAt:  s.now().UTC(),
	}

	analysis, err := normalizer.Normalize(reply.Text)
	var failure *normalizer.NormalizationFailure
	switch {
	case errors.As(err, &failure):
		res.Status = history.StatusUnparsed
		res.RawReply = failure.Raw
		log.WithField("raw_bytes", len(failure.Raw)).Warn("analysis reply could not be normalized")
	case err != nil:
		return Result{}, err
	default:
		res.Status = history.StatusAnalyzed
		res.Analysis = &analysis
		for _, w := range analysis.Warnings {
			s.metrics.CountWarning(w.Code)
			log.WithField("code", w.Code).Warn(w.Message)
		}
	}

	entry := history.Entry{
		ID:         res.ID,
		CreatedAt:  res.CreatedAt,
		Filename:   res.Filename,
		Status:     res.Status,
		Transcript: res.Transcript,
		Analysis:   res.Analysis,
		RawReply:   res.RawReply,
		Usage:      res.Usage,
	}
	if err := s.history.Append(ctx, session, entry); err != nil {
		return Result{}, fmt.Errorf("record history: %w", err)
	}

	s.metrics.CountAnalysis(res.Status)
	res.DurationMs = s.now().Sub(start).Milliseconds()
	return res, nil
}

// stash copies the upload into a scratch file the transcriber can read.
func (s *Service) stash(up Upload) (string, error) {
	if up.Body == nil {
		return "", ErrEmptyUpload
	}
	f, err := os.CreateTemp(s.tempDir, "call-*"+strings.ToLower(filepath.Ext(up.Filename)))
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	n, copyErr := io.Copy(f, up.Body)
	closeErr := f.Close()
	if copyErr == nil && closeErr == nil && n == 0 {
		copyErr = ErrEmptyUpload
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		if copyErr != nil {
			if errors.Is(copyErr, ErrEmptyUpload) {
				return "", copyErr
			}
			return "", fmt.Errorf("write scratch file: %w", copyErr)
		}
		return "", fmt.Errorf("write scratch file: %w", closeErr)
	}
	return f.Name(), nil
}

func sessionOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSession
	}
	return id
}
