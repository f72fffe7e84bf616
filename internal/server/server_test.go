package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/dataset"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/history"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/reps"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

type failingTranscriber struct{}

func (failingTranscriber) Transcribe(ctx context.Context, audioPath, language string) (types.Transcript, error) {
	return types.Transcript{}, errors.New("503 from speech service")
}

type fixedGenerator struct{ text string }

func (g fixedGenerator) Generate(ctx context.Context, prompt string) (extractor.Reply, error) {
	return extractor.Reply{Text: g.text}, nil
}

type testEnv struct {
	srv *httptest.Server
}

func newTestEnv(t *testing.T, tr transcription.Transcriber, gen extractor.Generator) *testEnv {
	t.Helper()
	rec, err := metrics.New()
	require.NoError(t, err)
	proc, err := processor.New(processor.Options{
		Transcriber: tr,
		Generator:   gen,
		History:     history.NewMemoryStore(),
		Metrics:     rec,
		Logger:      logger.Discard(),
		TempDir:     t.TempDir(),
	})
	require.NoError(t, err)
	s := New(Options{
		Processor:      proc,
		Reps:           reps.Seed(),
		Metrics:        rec,
		Logger:         logger.Discard(),
		MaxUploadBytes: 1 << 20,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path, session string, body *bytes.Buffer, contentType string) *http.Response {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartAudio(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAnalyzeUploadAndHistory(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))

	body, ct := multipartAudio(t, "call.mp3", []byte("ID3"))
	resp := env.do(t, http.MethodPost, "/analyze", "s-1", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var res processor.Result
	decode(t, resp, &res)
	require.Equal(t, history.StatusAnalyzed, res.Status)
	require.Equal(t, "call.mp3", res.Filename)
	require.Equal(t, types.SentimentPositive, res.Analysis.FinalSentiment)

	resp = env.do(t, http.MethodGet, "/history", "s-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hist historyResponse
	decode(t, resp, &hist)
	require.Len(t, hist.Entries, 1)
	require.Equal(t, res.ID, hist.Entries[0].ID)
	require.Equal(t, 1, hist.Summary.Analyzed)

	resp = env.do(t, http.MethodGet, "/history", "someone-else", nil, "")
	decode(t, resp, &hist)
	require.Empty(t, hist.Entries)
}

func TestAnalyzeJSONTranscript(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), fixedGenerator{text: "Final Customer Sentiment: Mixed\nResolution Summary: Partial credit issued.\nEscalation Required: [No]"})

	resp := env.do(t, http.MethodPost, "/analyze", "s", bytes.NewBufferString(`{"transcript":"customer asked for a credit"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res processor.Result
	decode(t, resp, &res)
	require.Equal(t, types.SentimentMixed, res.Analysis.FinalSentiment)
	require.Equal(t, types.EscalationNo, res.Analysis.EscalationRequired)
	require.Equal(t, types.OutcomeResolved, res.Analysis.Outcome)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	t.Run("gateway unavailable", func(t *testing.T) {
		env := newTestEnv(t, failingTranscriber{}, extractor.NewMock(""))
		body, ct := multipartAudio(t, "call.wav", []byte("RIFF"))
		resp := env.do(t, http.MethodPost, "/analyze", "s", body, ct)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var e errorBody
		decode(t, resp, &e)
		require.Equal(t, "gateway_unavailable", e.Code)
		require.Equal(t, "transcription gateway unavailable; try again later", e.Error)
	})

	t.Run("gateway detail is not echoed", func(t *testing.T) {
		gen, err := extractor.NewGemini(extractor.GeminiOptions{APIKey: "SUPERSECRETKEY", BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		env := newTestEnv(t, transcription.NewMock(""), gen)
		resp := env.do(t, http.MethodPost, "/analyze", "s", bytes.NewBufferString(`{"transcript":"hello"}`), "application/json")
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		require.NotContains(t, buf.String(), "SUPERSECRETKEY")
		require.NotContains(t, buf.String(), "127.0.0.1")
		require.Contains(t, buf.String(), "analysis gateway unavailable")
	})

	t.Run("empty transcript", func(t *testing.T) {
		env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
		resp := env.do(t, http.MethodPost, "/analyze", "s", bytes.NewBufferString(`{"transcript":"   "}`), "application/json")
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var e errorBody
		decode(t, resp, &e)
		require.Equal(t, "empty_transcript", e.Code)
	})

	t.Run("unparsed reply", func(t *testing.T) {
		raw := "The call went fine overall."
		env := newTestEnv(t, transcription.NewMock(""), fixedGenerator{text: raw})
		resp := env.do(t, http.MethodPost, "/analyze", "s", bytes.NewBufferString(`{"transcript":"hi"}`), "application/json")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var res processor.Result
		decode(t, resp, &res)
		require.Equal(t, history.StatusUnparsed, res.Status)
		require.Equal(t, raw, res.RawReply)
		require.Nil(t, res.Analysis)
	})

	t.Run("unsupported format", func(t *testing.T) {
		env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
		body, ct := multipartAudio(t, "notes.pdf", []byte("%PDF"))
		resp := env.do(t, http.MethodPost, "/analyze", "s", body, ct)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing audio field", func(t *testing.T) {
		env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("other", "x"))
		require.NoError(t, w.Close())
		resp := env.do(t, http.MethodPost, "/analyze", "s", &buf, w.FormDataContentType())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
		body, ct := multipartAudio(t, "big.mp3", bytes.Repeat([]byte("a"), 3<<19))
		resp := env.do(t, http.MethodPost, "/analyze", "s", body, ct)
		require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("wrong content type", func(t *testing.T) {
		env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
		resp := env.do(t, http.MethodPost, "/analyze", "s", bytes.NewBufferString("hi"), "text/plain")
		require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	})
}

func TestSessionCookieIssued(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
	resp := env.do(t, http.MethodGet, "/history", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get(SessionHeader)
	require.NotEmpty(t, id)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
			require.Equal(t, id, c.Value)
		}
	}
	require.True(t, found)
}

func TestRepsEndpoints(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))

	resp := env.do(t, http.MethodGet, "/reps?sort=escalations", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list repsResponse
	decode(t, resp, &list)
	require.Equal(t, reps.OrderEscalations, list.Sort)
	require.Len(t, list.Reps, 12)
	require.Equal(t, "rep006", list.Reps[0].ID)

	resp = env.do(t, http.MethodGet, "/reps?sort=height", "", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/reps/rep007", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rep types.Rep
	decode(t, resp, &rep)
	require.Equal(t, "Grace Lee", rep.Name)

	resp = env.do(t, http.MethodGet, "/reps/rep404", "", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardPages(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))

	resp := env.do(t, http.MethodGet, "/dashboard?page=bogus", "d", nil, "")
	var up uploadPage
	decode(t, resp, &up)
	require.Equal(t, "upload", string(up.View.Page))
	require.Equal(t, processor.SupportedFormats, up.AcceptedFormats)

	resp = env.do(t, http.MethodGet, "/dashboard?page=profile", "d", nil, "")
	var ov overviewPage
	decode(t, resp, &ov)
	require.Equal(t, "overview", string(ov.View.Page))
	require.Equal(t, "rep007", ov.Reps[0].ID)
	require.NotEmpty(t, ov.ActionCard.Insight)

	resp = env.do(t, http.MethodGet, "/dashboard?page=profile&rep=rep002", "d", nil, "")
	var prof profilePage
	decode(t, resp, &prof)
	require.Equal(t, "Bob Smith", prof.Rep.Name)
	require.Equal(t, "overview", string(prof.Back.Page))

	resp = env.do(t, http.MethodGet, "/dashboard?page=profile&rep=nobody", "d", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryExport(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
	resp := env.do(t, http.MethodPost, "/analyze", "x", bytes.NewBufferString(`{"transcript":"hello"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/history/export", "x", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/vnd.openxmlformats"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(dataset.HistorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, transcription.NewMock(""), extractor.NewMock(""))
	resp := env.do(t, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.do(t, http.MethodPost, "/analyze", "m", bytes.NewBufferString(`{"transcript":"hello"}`), "application/json")
	resp = env.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `callinsights_analyses_total{status="analyzed"} 1`)
}
