package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/epocher/internal/app"
	"github.com/okian/epocher/internal/config"
	"github.com/okian/epocher/internal/domain/model"
)

// JobsHandler serves matching requests and job lookups.
type JobsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Dependencies, maxBodyBytes int64) *JobsHandler {
	return &JobsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleMatch handles POST /match: the recording is matched in the request
// goroutine and the full report is returned.
func (h *JobsHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	report, err := h.deps.Match(r.Context(), req.Recording, req.Conditions)
	if err != nil {
		h.writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Export())
}

// HandleSubmit handles POST /jobs.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id, duplicate, err := h.deps.Submit(r.Context(), model.Job{ID: req.JobID, Recording: req.Recording, Conditions: req.Conditions})
	if err != nil {
		h.writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{JobID: id, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{JobID: id, Status: "accepted"})
}

// HandleGetJob handles GET /jobs/{id}.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	report, err := h.deps.Result(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Export())
}

// HandleConditions handles GET /conditions.
func (h *JobsHandler) HandleConditions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	names := h.deps.Conditions()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"conditions": names})
}

func (h *JobsHandler) decode(w http.ResponseWriter, r *http.Request) (jobRequest, error) {
	var req jobRequest
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, err
	}
	if req.Recording == nil {
		return req, errors.New("missing recording")
	}
	if req.Recording.SampleRate <= 0 {
		return req, fmt.Errorf("invalid sfreq %v", req.Recording.SampleRate)
	}
	return req, nil
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *JobsHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, config.ErrUnknownCondition), errors.Is(err, service.ErrInvalidJob):
		writeError(w, http.StatusUnprocessableEntity, "unprocessable", WrapKind(op, ErrUnprocessable, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
