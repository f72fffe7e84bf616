package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// PublishResponse is returned by POST /transcribe.
type PublishResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		MediaId          string `json:"MediaId"`
		Status           string `json:"Status"`
		LanguageId       int    `json:"LanguageId"`
		TranscriptionURL string `json:"TranscriptionURL"`
		WordsCount       int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueId string `json:"UniqueId,omitempty"`
}

// StatusResponse is returned by GET /getstatus.
type StatusResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		AudioURL             string `json:"AudioURL"`
		LanguageId           int    `json:"LanguageId"`
		Status               string `json:"Status"`
		TranscriptionTextURL string `json:"TranscriptionTextURL"`
		WordsCount           int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueId string `json:"UniqueId,omitempty"`
}

type ServiceOptions struct {
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
	HTTPClient   *http.Client
	Logger       *logger.Logger
}

// Service talks to an asynchronous transcription service: the audio is
// published, the job is polled until it leaves Queued/Processing, and the
// finished text is downloaded. Only the "still running" state is polled
// again; any HTTP or decode failure ends the call immediately.
type Service struct {
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	log          *logger.Logger
}

var errPending = errors.New("transcription still pending")

func NewService(opts ServiceOptions) (*Service, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("transcription service: TRANSCRIBE_URL not set")
	}
	s := &Service{
		baseURL:      base,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		httpClient:   opts.HTTPClient,
		log:          opts.Logger,
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 1500 * time.Millisecond
	}
	if s.maxPolls <= 0 {
		s.maxPolls = 40
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.log == nil {
		s.log = logger.New()
	}
	s.log = s.log.Component("transcription.service")
	return s, nil
}

func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (types.Transcript, error) {
	mediaID, existingURL, err := s.publish(ctx, audioPath, language)
	if err != nil {
		return types.Transcript{}, err
	}
	textURL := existingURL
	if textURL == "" {
		textURL, err = s.poll(ctx, mediaID)
		if err != nil {
			return types.Transcript{}, err
		}
	}
	s.log.WithField("media_id", mediaID).WithField("text_url", textURL).Info("download final transcript")
	text, err := s.download(ctx, textURL)
	if err != nil {
		return types.Transcript{}, err
	}
	return types.Transcript{
		Text:     text,
		Language: language,
		Segments: []types.Segment{{Text: text}},
	}, nil
}

func (s *Service) publish(ctx context.Context, audioPath, language string) (string, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", "", fmt.Errorf("transcribe publish: open audio: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", "", fmt.Errorf("transcribe publish: read audio: %w", err)
	}
	if language != "" {
		_ = w.WriteField("language", language)
	}
	if err := w.Close(); err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transcribe", &b)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp PublishResponse
	if err := s.doJSON(req, &resp); err != nil {
		return "", "", fmt.Errorf("transcribe publish: %w", err)
	}
	if resp.Code != 200 {
		return "", "", fmt.Errorf("transcribe publish error: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.TranscriptionURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return resp.Data.MediaId, resp.Data.TranscriptionURL, nil
	}
	if resp.Data.MediaId == "" {
		return "", "", errors.New("transcribe publish: response carried no media id")
	}
	return resp.Data.MediaId, "", nil
}

// poll checks the job status on a constant schedule until it finishes,
// fails, or MaxPolls checks have reported it still running.
func (s *Service) poll(ctx context.Context, mediaID string) (string, error) {
	u, err := url.Parse(s.baseURL + "/getstatus")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("mediaId", mediaID)
	u.RawQuery = q.Encode()

	var textURL string
	polls := 0
	op := func() error {
		polls++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		var st StatusResponse
		if err := s.doJSON(req, &st); err != nil {
			return backoff.Permanent(fmt.Errorf("transcribe status: %w", err))
		}
		s.log.WithField("media_id", mediaID).WithField("status", st.Data.Status).Debug("polling transcription")
		switch st.Data.Status {
		case "Success":
			if st.Data.TranscriptionTextURL == "" {
				return backoff.Permanent(errors.New("transcribe status: success without text url"))
			}
			textURL = st.Data.TranscriptionTextURL
			return nil
		case "Queued", "Processing":
			return errPending
		case "Failed":
			return backoff.Permanent(fmt.Errorf("transcription failed: %s", st.Reason))
		}
		return backoff.Permanent(fmt.Errorf("transcribe status: unexpected status %q", st.Data.Status))
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.pollInterval), uint64(s.maxPolls-1)),
		ctx,
	)
	if err := backoff.Retry(op, schedule); err != nil {
		if errors.Is(err, errPending) {
			return "", fmt.Errorf("transcription timeout: still pending after %d polls", polls)
		}
		return "", err
	}
	return textURL, nil
}

func (s *Service) download(ctx context.Context, textURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, textURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download transcript: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("download transcript: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("download transcript failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return string(b), nil
}

func (s *Service) doJSON(req *http.Request, target any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	return nil
}
