// Package repository stores job reports for later retrieval.
package repository

import (
	"context"

	"github.com/okian/epocher/internal/domain/types"
)

// Store provides read/write access to job reports.
type Store interface {
	// Put inserts or replaces the report of report.JobID.
	Put(ctx context.Context, report types.JobReport) error

	// Get returns the report of a job.
	// Returns ErrNotFound if the job is unknown.
	Get(ctx context.Context, jobID string) (types.JobReport, error)

	// List returns up to limit reports, most recently stored first.
	List(ctx context.Context, limit int) ([]types.JobReport, error)

	// Delete removes the report of a job; unknown ids are ignored.
	Delete(ctx context.Context, jobID string)

	// Count returns the number of stored reports.
	Count(ctx context.Context) int
}
