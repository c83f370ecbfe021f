package types

import (
	"time"

	pipeline "github.com/okian/epocher/internal/domain/pipeline"
	"github.com/okian/epocher/internal/domain/stats"
)

// TableExport is the flattened columnar form of an output table.
type TableExport struct {
	MarkerLabel   string    `json:"marker_label"`
	ResponseLabel string    `json:"response_label,omitempty"`
	Columns       []string  `json:"columns"`
	Rows          [][]int64 `json:"rows"`
}

// ConditionExport is the serialised form of one condition outcome.
type ConditionExport struct {
	Condition string             `json:"condition"`
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	Outcomes  map[string]int     `json:"outcomes,omitempty"`
	Summary   *stats.Summary     `json:"summary,omitempty"`
	Metadata  *pipeline.Metadata `json:"metadata,omitempty"`
	Table     *TableExport       `json:"table,omitempty"`
}

// ReportExport is the serialised form of a job report.
type ReportExport struct {
	JobID       string            `json:"job_id"`
	Recording   string            `json:"recording"`
	Status      string            `json:"status"`
	Tally       map[string]int    `json:"tally"`
	SubmittedAt time.Time         `json:"submitted_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Conditions  []ConditionExport `json:"conditions"`
}

// Export flattens r for JSON output. Tables become column names plus rows.
func (r JobReport) Export() ReportExport {
	out := ReportExport{
		JobID:       r.JobID,
		Recording:   r.Recording,
		Status:      r.Status,
		Tally:       r.Tally(),
		SubmittedAt: r.SubmittedAt,
		Conditions:  make([]ConditionExport, 0, len(r.Conditions)),
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		out.CompletedAt = &t
	}
	for _, c := range r.Conditions {
		out.Conditions = append(out.Conditions, c.Export())
	}
	return out
}

// Export flattens c for JSON output.
func (c ConditionReport) Export() ConditionExport {
	out := ConditionExport{Condition: c.Condition, Status: c.Status, Error: c.Error}
	if c.Result == nil {
		return out
	}
	sum := c.Result.Summary
	md := c.Result.Metadata
	out.Summary = &sum
	out.Outcomes = sum.ByName()
	out.Metadata = &md
	if t := c.Result.Table; t != nil {
		out.Table = &TableExport{
			MarkerLabel:   t.MarkerLabel,
			ResponseLabel: t.ResponseLabel,
			Columns:       t.Columns(),
			Rows:          t.Rows(),
		}
	}
	return out
}
