// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Match evaluates conditions on a recording synchronously.
	Match(ctx context.Context, rec *model.Recording, conditions []string) (types.JobReport, error)

	// Submit enqueues a job. duplicate is true for an already known job id.
	Submit(ctx context.Context, job model.Job) (id string, duplicate bool, err error)

	// Result returns the latest report of a submitted job.
	Result(ctx context.Context, id string) (types.JobReport, error)

	// Conditions lists the names the template defines.
	Conditions() []string
}

// Server wires HTTP routes for the matching API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	jobsHandler   *JobsHandler
}

// NewServer creates a new API server with all handlers. maxBodyBytes caps
// request bodies; zero or negative leaves them unbounded.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBodyBytes int64) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		jobsHandler:   NewJobsHandler(deps, maxBodyBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/conditions", MetricsMiddleware(s.jobsHandler.HandleConditions, "conditions"))
	mux.HandleFunc("/match", MetricsMiddleware(s.jobsHandler.HandleMatch, "match"))
	mux.HandleFunc("/jobs", MetricsMiddleware(s.jobsHandler.HandleSubmit, "jobs"))
	mux.HandleFunc("/jobs/", MetricsMiddleware(s.jobsHandler.HandleGetJob, "job"))
}

// jobRequest is the body of POST /match and POST /jobs.
type jobRequest struct {
	JobID      string           `json:"job_id"`
	Recording  *model.Recording `json:"recording"`
	Conditions []string         `json:"conditions"`
}

type ackResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
