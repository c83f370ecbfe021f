// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for model validation.
var (
	ErrUnsorted       = errors.New("events not sorted by onset")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrUnknownField   = errors.New("unknown time field")
	ErrInvalidIDRange = errors.New("invalid id range")
)

// Event is one discrete event on a channel. Onset and Offset are sample
// indices (ticks). Offset is 0 when no falling edge was found.
type Event struct {
	ID     int   `json:"id"`
	Onset  int64 `json:"onset"`
	Offset int64 `json:"offset"`
}

// HasOffset reports whether the falling edge is known.
func (e Event) HasOffset() bool { return e.Offset != 0 }

// Duration returns Offset-Onset, or 0 when the offset is unknown.
func (e Event) Duration() int64 {
	if !e.HasOffset() {
		return 0
	}
	return e.Offset - e.Onset
}

// TimeField selects which timestamp of an event takes part in matching.
type TimeField int

const (
	FieldOnset TimeField = iota
	FieldOffset
)

// String returns the column suffix of the field.
func (f TimeField) String() string {
	if f == FieldOffset {
		return "offset"
	}
	return "onset"
}

// Of returns the timestamp of e selected by f.
func (f TimeField) Of(e Event) int64 {
	if f == FieldOffset {
		return e.Offset
	}
	return e.Onset
}

// ParseTimeField accepts "onset"/"offset" and prefixed forms such as "iod_onset".
func ParseTimeField(s string) (TimeField, error) {
	switch {
	case s == "" || s == "onset" || hasSuffix(s, "_onset"):
		return FieldOnset, nil
	case s == "offset" || hasSuffix(s, "_offset"):
		return FieldOffset, nil
	}
	return FieldOnset, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// EventTable is the ordered event sequence of one logical channel.
// Column names carry Prefix when set, e.g. "iod_onset".
type EventTable struct {
	Label  string
	Prefix string
	Events []Event
}

// Len returns the number of events.
func (t *EventTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// Column returns the prefixed column name for field ("id", "onset", "offset").
func (t *EventTable) Column(field string) string {
	return PrefixedColumn(t.Prefix, field)
}

// Columns returns the id, onset and offset column names in order.
func (t *EventTable) Columns() []string {
	return []string{t.Column("id"), t.Column("onset"), t.Column("offset")}
}

// Validate checks onset ordering and onset <= offset for known offsets.
func (t *EventTable) Validate() error {
	for i, e := range t.Events {
		if e.HasOffset() && e.Offset < e.Onset {
			return fmt.Errorf("%w: %s row %d offset %d before onset %d", ErrInvalidEvent, t.Label, i, e.Offset, e.Onset)
		}
		if i > 0 && e.Onset < t.Events[i-1].Onset {
			return fmt.Errorf("%w: %s row %d", ErrUnsorted, t.Label, i)
		}
	}
	return nil
}

// Filter returns a copy holding only events whose id is in ids.
func (t *EventTable) Filter(ids IDSet) *EventTable {
	out := &EventTable{Label: t.Label, Prefix: t.Prefix, Events: make([]Event, 0, len(t.Events))}
	for _, e := range t.Events {
		if ids.Contains(e.ID) {
			out.Events = append(out.Events, e)
		}
	}
	return out
}

// WithPrefix returns a shallow copy of the table under another column prefix.
func (t *EventTable) WithPrefix(prefix string) *EventTable {
	return &EventTable{Label: t.Label, Prefix: prefix, Events: t.Events}
}

// PrefixedColumn joins prefix and name with "_"; an empty prefix yields name.
func PrefixedColumn(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// DurationStats summarises event durations in ticks.
type DurationStats struct {
	Mean int64 `json:"mean"`
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
}

// ChannelInfo is the metadata the event detector hands over with a table.
type ChannelInfo struct {
	SampleRate         float64       `json:"sfreq"`
	Duration           DurationStats `json:"duration"`
	SystemDelayApplied bool          `json:"system_delay_is_applied"`
}
