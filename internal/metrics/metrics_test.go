package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.CountAnalysis("analyzed")
	r.CountAnalysis("analyzed")
	r.CountAnalysis("unparsed")
	r.ObserveGateway(GatewayAnalysis, 200*time.Millisecond, nil)
	r.ObserveGateway(GatewayAnalysis, time.Second, errors.New("down"))
	r.CountWarning("outcome_mismatch")
	r.AddTokens(100, 0)

	require.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("analyzed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("unparsed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.gatewayErrors.WithLabelValues(GatewayAnalysis)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.warnings.WithLabelValues("outcome_mismatch")))
	require.Equal(t, 100.0, testutil.ToFloat64(r.tokens.WithLabelValues("prompt")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	r.CountAnalysis("analyzed")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), "callinsights_analyses_total")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.CountAnalysis("analyzed")
	r.ObserveGateway(GatewayTranscription, time.Second, errors.New("x"))
	r.CountWarning("x")
	r.AddTokens(1, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
