// Package server is the JSON presentation layer over the processor, the
// session history and the rep directory.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/reps"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session"
)

type Options struct {
	Processor      *processor.Service
	Reps           *reps.Directory
	Metrics        *metrics.Recorder
	Logger         *logger.Logger
	MaxUploadBytes int64
}

type Server struct {
	proc      *processor.Service
	reps      *reps.Directory
	metrics   *metrics.Recorder
	log       *logger.Logger
	maxUpload int64
}

func New(opts Options) *Server {
	s := &Server{
		proc:      opts.Processor,
		reps:      opts.Reps,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.reps == nil {
		s.reps = reps.Seed()
	}
	if s.log == nil {
		s.log = logger.New()
	}
	s.log = s.log.Component("server")
	if s.maxUpload <= 0 {
		s.maxUpload = 25 << 20
	}
	return s
}

// Handler returns the routed mux wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /history/export", s.handleHistoryExport)
	mux.HandleFunc("GET /reps", s.handleReps)
	mux.HandleFunc("GET /reps/{id}", s.handleRep)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	return s.withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(logger.RequestIDHeader) == "" {
			r.Header.Set(logger.RequestIDHeader, uuid.NewString())
		}
		w.Header().Set(logger.RequestIDHeader, r.Header.Get(logger.RequestIDHeader))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			entry.Debug("request served")
			return
		}
		entry.Info("request served")
	})
}

// sessionID returns the caller's session, creating one (and a cookie) when
// the request carries none.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, id)
	return id
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}
