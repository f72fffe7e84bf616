package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callinsights"

// Gateway labels.
const (
	GatewayTranscription = "transcription"
	GatewayAnalysis      = "analysis"
)

// Recorder owns a private registry. A nil *Recorder records nothing, so
// callers that do not care about metrics can pass nil.
type Recorder struct {
	registry *prometheus.Registry
	handler  http.Handler

	analyses       *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	gatewayErrors  *prometheus.CounterVec
	warnings       *prometheus.CounterVec
	tokens         *prometheus.CounterVec
}

func New() (*Recorder, error) {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Completed analysis requests by final status.",
			},
			[]string{"status"},
		),
		gatewayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_duration_seconds",
				Help:      "Duration of calls to the external gateways.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"gateway"},
		),
		gatewayErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_errors_total",
				Help:      "Failed calls to the external gateways.",
			},
			[]string{"gateway"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_warnings_total",
				Help:      "Consistency warnings raised while normalizing replies.",
			},
			[]string{"code"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Prompt and response tokens reported by the analysis gateway.",
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{r.analyses, r.gatewayLatency, r.gatewayErrors, r.warnings, r.tokens} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	r.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return r, nil
}

// Handler serves the registry. It returns 404 on a nil Recorder.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return r.handler
}

func (r *Recorder) ObserveGateway(gateway string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.gatewayLatency.WithLabelValues(gateway).Observe(d.Seconds())
	if err != nil {
		r.gatewayErrors.WithLabelValues(gateway).Inc()
	}
}

func (r *Recorder) CountAnalysis(status string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(status).Inc()
}

func (r *Recorder) CountWarning(code string) {
	if r == nil {
		return
	}
	r.warnings.WithLabelValues(code).Inc()
}

func (r *Recorder) AddTokens(prompt, response int) {
	if r == nil {
		return
	}
	if prompt > 0 {
		r.tokens.WithLabelValues("prompt").Add(float64(prompt))
	}
	if response > 0 {
		r.tokens.WithLabelValues("response").Add(float64(response))
	}
}
