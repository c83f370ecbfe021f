package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/epocher/internal/config"
	"github.com/okian/epocher/internal/domain/model"
	pipeline "github.com/okian/epocher/internal/domain/pipeline"
	"github.com/okian/epocher/internal/domain/types"
	"github.com/okian/epocher/pkg/logger"
	"github.com/okian/epocher/pkg/metrics"
)

// Processor evaluates the conditions of a job against a template. One failing
// condition does not stop the others.
type Processor struct {
	template *config.Template
	runner   *pipeline.Runner
	logger   logger.Logger
}

// NewProcessor builds a Processor over tpl.
func NewProcessor(tpl *config.Template, runner *pipeline.Runner, l logger.Logger) *Processor {
	if runner == nil {
		runner = pipeline.NewRunner()
	}
	if l == nil {
		l = logger.Named("processor")
	}
	return &Processor{template: tpl, runner: runner, logger: l}
}

// Process runs every condition requested by job, or the whole template when
// the job names none. It returns an error only when the job cannot be run at
// all; per-condition failures are reported in the result.
func (p *Processor) Process(ctx context.Context, job model.Job) (types.JobReport, error) {
	report := types.JobReport{JobID: job.ID, SubmittedAt: time.Now()}
	if job.Recording == nil {
		return report, fmt.Errorf("%w: %w", ErrInvalidJob, pipeline.ErrMissingRecording)
	}
	report.Recording = job.Recording.Name
	if p.template == nil {
		return report, ErrNoTemplate
	}

	names := job.Conditions
	if len(names) == 0 {
		names = p.template.Names()
	}
	report.Conditions = make([]types.ConditionReport, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("job %s: %w", job.ID, err)
		}
		report.Conditions = append(report.Conditions, p.condition(ctx, job.Recording, name))
	}

	report.Status = types.JobDone
	report.CompletedAt = time.Now()
	tally := report.Tally()
	p.logger.Info(ctx, "job done",
		logger.String("job_id", job.ID),
		logger.String("recording", report.Recording),
		logger.Int(types.StatusOK, tally[types.StatusOK]),
		logger.Int(types.StatusSkipped, tally[types.StatusSkipped]),
		logger.Int(types.StatusFailed, tally[types.StatusFailed]),
	)
	return report, nil
}

func (p *Processor) condition(ctx context.Context, rec *model.Recording, name string) types.ConditionReport {
	cr := types.ConditionReport{Condition: name}
	c, err := p.template.Condition(name, rec.SampleRate)
	if err != nil {
		metrics.RecordCondition(types.StatusFailed)
		p.logger.Error(ctx, "condition not resolved", logger.String("condition", name), logger.Error(err))
		cr.Status = types.StatusFailed
		cr.Error = err.Error()
		return cr
	}
	cr.Result, err = p.runner.Run(ctx, rec, c)
	switch {
	case err == nil:
		cr.Status = types.StatusOK
	case pipeline.IsWarning(err):
		cr.Status = types.StatusSkipped
		cr.Error = err.Error()
	default:
		cr.Status = types.StatusFailed
		cr.Error = err.Error()
	}
	return cr
}

// Validate checks that every named condition exists in the template.
func (p *Processor) Validate(names []string) error {
	if p.template == nil {
		return ErrNoTemplate
	}
	for _, n := range names {
		if !p.template.Has(n) {
			return fmt.Errorf("%w: %q", config.ErrUnknownCondition, n)
		}
	}
	return nil
}
