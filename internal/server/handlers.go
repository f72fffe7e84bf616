package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"call-insights-go/internal/actionable"
	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/dataset"
	"call-insights-go/internal/history"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/reps"
	"call-insights-go/internal/types"
	"call-insights-go/internal/view"
)

// recentLimit bounds the history shown on the upload page.
const recentLimit = 5

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "analyze")
	session := sessionID(w, r)

	// headroom for multipart framing on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		res processor.Result
		err error
	)
	switch mediaType {
	case "multipart/form-data":
		file, hdr, ferr := r.FormFile("audio")
		if ferr != nil {
			s.analyzeError(w, r, badUpload(ferr))
			return
		}
		defer file.Close()
		if hdr.Size > s.maxUpload {
			writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Errorf("file is %d bytes; limit is %d", hdr.Size, s.maxUpload))
			return
		}
		res, err = s.proc.Analyze(r.Context(), processor.Upload{
			Filename:  hdr.Filename,
			Body:      file,
			SessionID: session,
		})
	case "application/json":
		var body transcriptRequest
		if derr := json.NewDecoder(r.Body).Decode(&body); derr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("decode body: %w", derr))
			return
		}
		res, err = s.proc.AnalyzeTranscript(r.Context(), body.Transcript, session)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type",
			errors.New("send multipart/form-data with an audio field or a JSON transcript"))
		return
	}
	if err != nil {
		s.analyzeError(w, r, err)
		return
	}

	reqLog.WithField("status", res.Status).WithField("analysis_id", res.ID).Info("analysis complete")
	writeJSON(w, http.StatusOK, res)
}

type uploadError struct{ err error }

func (e uploadError) Error() string { return e.err.Error() }
func (e uploadError) Unwrap() error { return e.err }

func badUpload(err error) error { return uploadError{err} }

func (s *Server) analyzeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxErr *http.MaxBytesError
		upErr  uploadError
		gwErr  *processor.GatewayError
	)
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", err)
	case errors.As(err, &gwErr):
		// gateway detail stays in the log; it can quote upstream URLs and bodies
		writeError(w, http.StatusBadGateway, "gateway_unavailable",
			fmt.Errorf("%s gateway unavailable; try again later", gwErr.Gateway))
	case errors.Is(err, processor.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "gateway_unavailable",
			errors.New("gateway unavailable; try again later"))
	case errors.Is(err, processor.ErrEmptyTranscript):
		writeError(w, http.StatusUnprocessableEntity, "empty_transcript",
			errors.New("the recording produced no speech; analysis was skipped"))
	case errors.Is(err, processor.ErrUnsupportedType), errors.Is(err, processor.ErrEmptyUpload), errors.As(err, &upErr):
		writeError(w, http.StatusBadRequest, "bad_upload", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
	s.log.WithRequest(r).WithField("error", err.Error()).Warn("analysis request failed")
}

type historyResponse struct {
	Session string             `json:"session"`
	Entries []history.Entry    `json:"entries"`
	Summary aggregator.Summary `json:"summary"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	entries, err := s.proc.History(r.Context(), session)
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("history lookup failed")
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Session: session, Entries: entries, Summary: aggregator.Summarize(entries)})
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	entries, err := s.proc.History(r.Context(), session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="call-history.xlsx"`)
	if err := dataset.ExportHistory(w, entries, aggregator.Summarize(entries)); err != nil {
		s.log.WithRequest(r).WithError(err).Error("history export failed")
	}
}

type repsResponse struct {
	Sort reps.Order  `json:"sort"`
	Reps []types.Rep `json:"reps"`
}

func (s *Server) handleReps(w http.ResponseWriter, r *http.Request) {
	order, err := reps.ParseOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, repsResponse{Sort: order, Reps: s.reps.Sorted(order)})
}

func (s *Server) handleRep(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reps.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type uploadPage struct {
	View            view.State      `json:"view"`
	AcceptedFormats []string        `json:"accepted_formats"`
	Recent          []history.Entry `json:"recent"`
}

type overviewPage struct {
	View       view.State            `json:"view"`
	Summary    aggregator.Summary    `json:"summary"`
	ActionCard actionable.ActionCard `json:"action_card"`
	Sort       reps.Order            `json:"sort"`
	Reps       []types.Rep           `json:"reps"`
}

type profilePage struct {
	View view.State `json:"view"`
	Rep  types.Rep  `json:"rep"`
	Back view.State `json:"back"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := view.Parse(r.URL.Query())
	session := sessionID(w, r)

	switch state.Page {
	case view.PageProfile:
		rep, err := s.reps.Get(state.RepID)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeJSON(w, http.StatusOK, profilePage{View: state, Rep: rep, Back: view.State{Page: view.PageOverview}})

	case view.PageOverview:
		order, err := reps.ParseOrder(r.URL.Query().Get("sort"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		entries, err := s.proc.History(r.Context(), session)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err)
			return
		}
		summary := aggregator.Summarize(entries)
		writeJSON(w, http.StatusOK, overviewPage{
			View:       state,
			Summary:    summary,
			ActionCard: actionable.Generate(summary),
			Sort:       order,
			Reps:       s.reps.Sorted(order),
		})

	default:
		entries, err := s.proc.History(r.Context(), session)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err)
			return
		}
		if len(entries) > recentLimit {
			entries = entries[len(entries)-recentLimit:]
		}
		writeJSON(w, http.StatusOK, uploadPage{
			View:            state,
			AcceptedFormats: processor.SupportedFormats,
			Recent:          entries,
		})
	}
}
