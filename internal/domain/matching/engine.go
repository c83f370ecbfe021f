// Package matching pairs marker events with response events inside a
// per-marker time window and classifies each pairing.
package matching

import (
	"context"
	"fmt"
	"time"

	model "github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/pkg/logger"
	"github.com/okian/epocher/pkg/metrics"
)

// Engine runs matching invocations. It holds no per-invocation state and is
// safe for concurrent use as long as callers do not share mutable tables.
type Engine struct {
	log logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{log: logger.Named("matching")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is everything one invocation needs.
type Input struct {
	Condition     string
	Markers       *Markers
	Responses     *model.EventTable
	ResponseField model.TimeField
	Config        *Config
}

func (in Input) validate() error {
	switch {
	case in.Config == nil:
		return ErrMissingConfig
	case in.Markers == nil:
		return ErrMissingMarkers
	case in.Responses == nil:
		return ErrMissingResponses
	}
	if err := in.Config.window.Validate(); err != nil {
		return err
	}
	if in.Config.targets.Len() == 0 {
		return fmt.Errorf("%w: target ids must not be empty", ErrInvalidIDs)
	}
	return nil
}

// Match classifies every in-bounds marker against the response table and
// returns a new output table. Inputs are never modified. On a validation
// error no table is returned.
func (e *Engine) Match(ctx context.Context, in Input) (*Table, error) {
	if err := in.validate(); err != nil {
		e.log.Error(ctx, "matching rejected", logger.String("condition", in.Condition), logger.Error(err))
		return nil, fmt.Errorf("condition %q: %w", in.Condition, err)
	}
	start := time.Now()
	cfg := in.Config
	events := in.Responses.Events
	ids := make([]int, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	window := newTimeIndex(events, in.ResponseField)
	early := &earlyDetector{
		onsets:  newTimeIndex(events, model.FieldOnset),
		offsets: newTimeIndex(events, model.FieldOffset),
		ids:     ids,
		policy:  cfg.early,
	}
	if !cfg.counts.IsSet() {
		e.log.Warn(ctx, "counts policy missing, limiting to responses found",
			logger.String("condition", in.Condition))
		metrics.RecordPolicyMissing()
	}

	out := &Table{
		MarkerLabel:    in.Markers.Label,
		MarkerPrefix:   in.Markers.Prefix,
		ResponseLabel:  in.Responses.Label,
		ResponsePrefix: in.Responses.Prefix,
		Upstream:       in.Markers.Upstream,
		Records:        make([]Record, 0, in.Markers.Len()),
	}
	skipped := in.Markers.Dropped
	for _, m := range in.Markers.Items {
		r := Resolve(m.Time, cfg.window)
		if !r.InBounds() {
			skipped++
			continue
		}
		if cfg.window.Start > 0 {
			if rows := early.find(m.Time, r.Start); len(rows) > 0 {
				out.Records = append(out.Records, materialize(m, events, in.ResponseField, rows[0], TooEarly, len(rows)))
				continue
			}
		}
		found := window.inclusive(r.Start, r.End)
		if len(found) == 0 {
			out.Records = append(out.Records, materialize(m, events, in.ResponseField, -1, Missed, 0))
			continue
		}
		for i, v := range classify(cfg, found, ids) {
			out.Records = append(out.Records, materialize(m, events, in.ResponseField, v.row, v.outcome, i+1))
		}
	}

	for i := range out.Records {
		metrics.RecordOutcome(out.Records[i].Outcome.String())
	}
	if skipped > 0 {
		metrics.RecordMarkersSkipped(skipped)
	}
	metrics.RecordOutputRows(out.Len())
	metrics.RecordMatchingLatency(float64(time.Since(start).Microseconds()) / 1000)
	e.log.Debug(ctx, "matching done",
		logger.String("condition", in.Condition),
		logger.String("markers", in.Markers.Label),
		logger.String("responses", in.Responses.Label),
		logger.Int("marker_count", in.Markers.Len()),
		logger.Int("rows", out.Len()),
		logger.Int("skipped", skipped),
	)
	return out, nil
}
