// Package pipeline runs a resolved condition against one recording: event
// detection, the optional IOD stage, and behavioural matching.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	detect "github.com/okian/epocher/internal/domain/detect"
	matching "github.com/okian/epocher/internal/domain/matching"
	model "github.com/okian/epocher/internal/domain/model"
	stats "github.com/okian/epocher/internal/domain/stats"
	"github.com/okian/epocher/pkg/logger"
	"github.com/okian/epocher/pkg/metrics"
)

// Metadata travels with every result table.
type Metadata struct {
	Parameters         map[string]any     `json:"epocher_parameter,omitempty"`
	MarkerInfo         model.ChannelInfo  `json:"info_parameter"`
	ResponseInfo       *model.ChannelInfo `json:"response_info,omitempty"`
	IODMatched         bool               `json:"iod_matched"`
	BehaviouralMatched bool               `json:"behavioural_matched"`
}

// Result is the output of one condition on one recording.
type Result struct {
	Condition string          `json:"condition"`
	Recording string          `json:"recording"`
	Table     *matching.Table `json:"table"`
	Metadata  Metadata        `json:"metadata"`
	Summary   stats.Summary   `json:"summary"`
}

// Runner executes conditions.
type Runner struct {
	log      logger.Logger
	engine   *matching.Engine
	detector *detect.Detector
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithEngine replaces the matching engine.
func WithEngine(e *matching.Engine) Option {
	return func(r *Runner) { r.engine = e }
}

// WithDetector replaces the event detector.
func WithDetector(d *detect.Detector) Option {
	return func(r *Runner) { r.detector = d }
}

// NewRunner returns a Runner with default engine and detector.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: logger.Named("pipeline")}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = matching.New(matching.WithLogger(r.log.Named("matching")))
	}
	if r.detector == nil {
		r.detector = detect.New(detect.WithLogger(r.log.Named("detect")))
	}
	return r
}

// Run evaluates c on rec. Every error is a *ConditionError; use IsWarning to
// tell skipped conditions from failed ones.
func (r *Runner) Run(ctx context.Context, rec *model.Recording, c *Condition) (*Result, error) {
	if c == nil {
		return nil, &ConditionError{Err: ErrMissingCondition}
	}
	start := time.Now()
	res, err := r.run(ctx, rec, c)
	if err != nil {
		cerr := &ConditionError{Condition: c.Name, Err: err}
		if IsWarning(err) {
			metrics.RecordCondition("skipped")
			r.log.Warn(ctx, "condition skipped", logger.String("condition", c.Name), logger.Error(err))
		} else {
			metrics.RecordCondition("failed")
			metrics.RecordErrorByComponent("pipeline", errorType(err))
			r.log.Error(ctx, "condition failed", logger.String("condition", c.Name), logger.Error(err))
		}
		return nil, cerr
	}
	metrics.RecordCondition("ok")
	r.log.Info(ctx, "condition done",
		logger.String("condition", c.Name),
		logger.String("recording", res.Recording),
		logger.Int("rows", res.Table.Len()),
		logger.Bool("iod_matched", res.Metadata.IODMatched),
		logger.Bool("behavioural_matched", res.Metadata.BehaviouralMatched),
		logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return res, nil
}

func (r *Runner) run(ctx context.Context, rec *model.Recording, c *Condition) (*Result, error) {
	if rec == nil {
		return nil, ErrMissingRecording
	}
	res := &Result{
		Condition: c.Name,
		Recording: rec.Name,
		Metadata:  Metadata{Parameters: c.Parameters},
	}

	var (
		markers *matching.Markers
		stage1  *matching.Table
	)
	if c.IOD != nil {
		mrk, mrkInfo, err := r.events(ctx, rec, c, c.IOD.Marker, true)
		if err != nil {
			return nil, err
		}
		iod, iodInfo, err := r.events(ctx, rec, c, c.IOD.Response, true)
		if err != nil {
			return nil, err
		}
		if iodInfo.SystemDelayApplied {
			mrkInfo.SystemDelayApplied = true
		}
		stage1, err = r.engine.Match(ctx, matching.Input{
			Condition:     c.Name,
			Markers:       matching.FromEvents(mrk, c.IOD.Marker.Field),
			Responses:     iod,
			ResponseField: c.IOD.Response.Field,
			Config:        c.IOD.Config,
		})
		if err != nil {
			return nil, err
		}
		res.Metadata.MarkerInfo = mrkInfo
		res.Metadata.IODMatched = true
		markers = matching.FromRecords(stage1, c.IOD.Response.Field)
	} else {
		mrk, mrkInfo, err := r.events(ctx, rec, c, c.Marker, true)
		if err != nil {
			return nil, err
		}
		res.Metadata.MarkerInfo = mrkInfo
		markers = matching.FromEvents(mrk, c.Marker.Field)
	}

	switch {
	case c.Response != nil:
		// Every response is a candidate; event ids only decide HIT or WRONG.
		resp, respInfo, err := r.events(ctx, rec, c, c.Response.Response, false)
		if err != nil {
			return nil, err
		}
		out, err := r.engine.Match(ctx, matching.Input{
			Condition:     c.Name,
			Markers:       markers,
			Responses:     resp,
			ResponseField: c.Response.Response.Field,
			Config:        c.Response.Config,
		})
		if err != nil {
			return nil, err
		}
		res.Table = out
		res.Metadata.ResponseInfo = &respInfo
		res.Metadata.BehaviouralMatched = true
	case stage1 != nil:
		res.Table = stage1
	default:
		res.Table = matching.Tag(markers, c.TypeResult)
	}
	res.Summary = stats.Summarize(res.Table, rec.SampleRate)
	return res, nil
}

func (r *Runner) events(ctx context.Context, rec *model.Recording, c *Condition, role Role, filterIDs bool) (*model.EventTable, model.ChannelInfo, error) {
	ch, ok := c.Channels[role.Channel]
	if !ok {
		return nil, model.ChannelInfo{}, fmt.Errorf("%w: no channel section %q", ErrMissingChannel, role.Channel)
	}
	data, ok := rec.Channel(ch.Label)
	if !ok {
		return nil, model.ChannelInfo{}, fmt.Errorf("%w: recording %s has no %q", ErrMissingChannel, rec.Name, ch.Label)
	}
	params := ch.Params
	if !filterIDs {
		params.EventIDs = nil
	}
	return r.detector.Detect(ctx, ch.Label, role.Prefix, data, rec.SampleRate, params)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, matching.ErrInvalidWindow), errors.Is(err, matching.ErrInvalidIDs),
		errors.Is(err, matching.ErrInvalidCounts), errors.Is(err, matching.ErrMissingConfig):
		return "config"
	case errors.Is(err, ErrMissingChannel), errors.Is(err, ErrMissingRecording),
		errors.Is(err, matching.ErrMissingMarkers), errors.Is(err, matching.ErrMissingResponses),
		errors.Is(err, detect.ErrNoSamples):
		return "missing_input"
	}
	return "other"
}
