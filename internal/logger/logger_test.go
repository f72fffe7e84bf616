package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNonLocalEnvironmentLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "production", Level: "warn", Output: &buf})

	log.Component("normalizer").Info("hidden")
	log.Component("normalizer").WithField("code", "score_out_of_band").Warn("consistency warning")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "normalizer", line["component"])
	require.Equal(t, "score_out_of_band", line["code"])
	require.Equal(t, "warning", line["level"])
}

func TestLevelParsing(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, NewWithOptions(Options{Level: "DEBUG"}).Logger.GetLevel())
	require.Equal(t, logrus.ErrorLevel, NewWithOptions(Options{Level: "error"}).Logger.GetLevel())
	require.Equal(t, logrus.InfoLevel, NewWithOptions(Options{Level: "verbose"}).Logger.GetLevel())
}

func TestWithRequestKeepsCallerRequestID(t *testing.T) {
	req := httptest.NewRequest("POST", "/analyze", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	entry := Discard().WithRequest(req)
	require.Equal(t, "abc-123", entry.Data["req_id"])
	require.Equal(t, "/analyze", entry.Data["path"])
}

func TestWithRequestGeneratesRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/healthz", nil)
	entry := Discard().WithRequest(req)
	require.NotEmpty(t, entry.Data["req_id"])
}

func TestWithErrorNil(t *testing.T) {
	log := Discard()
	require.NotContains(t, log.WithError(nil).Data, "error")
	require.Equal(t, "boom", log.WithError(errors.New("boom")).Data["error"])
}
