// Package detect extracts discrete events from trigger channels and
// prepares the event tables consumed by matching.
package detect

import (
	"context"
	"fmt"
	"math"

	model "github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/pkg/logger"
	"github.com/okian/epocher/pkg/metrics"
)

// Params controls detection on one channel.
type Params struct {
	// EventIDs keeps only these ids. Empty keeps every event.
	EventIDs model.IDSet
	// AndMask is applied to trigger values (and to pre-detected ids) when non-zero.
	AndMask int64
	// SystemDelayMS is added to onsets and known offsets.
	SystemDelayMS float64
	// MinDuration in seconds; shorter plateaus are treated as glitches.
	MinDuration float64
}

// Detector turns recorded channels into event tables.
type Detector struct {
	log logger.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// New returns a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{log: logger.Named("detect")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect builds the event table of one channel. Raw samples are preferred
// over pre-detected events when both exist.
func (d *Detector) Detect(ctx context.Context, label, prefix string, ch model.ChannelData, sfreq float64, p Params) (*model.EventTable, model.ChannelInfo, error) {
	info := model.ChannelInfo{SampleRate: sfreq}
	if sfreq <= 0 {
		return nil, info, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sfreq)
	}

	var (
		events       []model.Event
		delayApplied bool
	)
	switch {
	case len(ch.Samples) > 0:
		events = Steps(ch.Samples, p.AndMask, Ticks(p.MinDuration, sfreq))
	case len(ch.Events) > 0:
		events = make([]model.Event, len(ch.Events))
		copy(events, ch.Events)
		if p.AndMask != 0 {
			for i := range events {
				events[i].ID = int(int64(events[i].ID) & p.AndMask)
			}
		}
		delayApplied = ch.SystemDelayApplied
	default:
		return nil, info, fmt.Errorf("%w: %s", ErrNoSamples, label)
	}

	if p.EventIDs.Len() > 0 {
		kept := events[:0:0]
		for _, e := range events {
			if p.EventIDs.Contains(e.ID) {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	if len(events) == 0 {
		d.log.Warn(ctx, "no matching events",
			logger.String("channel", label),
			logger.String("event_id", p.EventIDs.String()))
		return nil, info, fmt.Errorf("%w: channel %s event_id %s", ErrNoMatchingEvents, label, p.EventIDs.String())
	}

	if p.SystemDelayMS != 0 && !delayApplied {
		delay := int64(Ticks(p.SystemDelayMS/1000, sfreq))
		for i := range events {
			events[i].Onset += delay
			if events[i].HasOffset() {
				events[i].Offset += delay
			}
		}
		delayApplied = true
	}

	tbl := &model.EventTable{Label: label, Prefix: prefix, Events: events}
	if err := tbl.Validate(); err != nil {
		return nil, info, err
	}
	info.Duration = Durations(events)
	info.SystemDelayApplied = delayApplied
	metrics.RecordEventsDetected(label, len(events))
	d.log.Debug(ctx, "events detected",
		logger.String("channel", label),
		logger.Int("events", len(events)),
		logger.Bool("system_delay_is_applied", delayApplied))
	return tbl, info, nil
}

// Ticks converts seconds to the nearest sample count.
func Ticks(seconds, sfreq float64) int {
	return int(math.Round(seconds * sfreq))
}

// Durations summarises offset-onset over events with a known offset.
func Durations(events []model.Event) model.DurationStats {
	var (
		st    model.DurationStats
		sum   int64
		count int64
	)
	for _, e := range events {
		if !e.HasOffset() {
			continue
		}
		dur := e.Duration()
		if count == 0 || dur < st.Min {
			st.Min = dur
		}
		if count == 0 || dur > st.Max {
			st.Max = dur
		}
		sum += dur
		count++
	}
	if count > 0 {
		st.Mean = int64(math.RoundToEven(float64(sum) / float64(count)))
	}
	return st
}
