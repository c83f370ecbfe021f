// Package types contains common types used across the application
package types

import (
	"time"

	pipeline "github.com/okian/epocher/internal/domain/pipeline"
)

// Condition outcome statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Job lifecycle statuses.
const (
	JobQueued = "queued"
	JobDone   = "done"
)

// ConditionReport is the outcome of one condition within a job.
type ConditionReport struct {
	Condition string           `json:"condition"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
}

// JobReport is the outcome of one recording across its conditions.
type JobReport struct {
	JobID       string            `json:"job_id"`
	Recording   string            `json:"recording"`
	Status      string            `json:"status"`
	Conditions  []ConditionReport `json:"conditions,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
}

// Tally counts condition reports by status.
func (r JobReport) Tally() map[string]int {
	out := map[string]int{StatusOK: 0, StatusSkipped: 0, StatusFailed: 0}
	for _, c := range r.Conditions {
		out[c.Status]++
	}
	return out
}

// Failed reports whether any condition failed.
func (r JobReport) Failed() bool {
	for _, c := range r.Conditions {
		if c.Status == StatusFailed {
			return true
		}
	}
	return false
}
