package model

// ChannelData holds what is known about one recorded channel: either events
// already produced by an upstream detector, or the raw trigger samples to
// detect them from. Samples take precedence when both are present.
type ChannelData struct {
	Events  []Event `json:"events,omitempty"`
	Samples []int64 `json:"samples,omitempty"`
	// SystemDelayApplied marks pre-detected events whose timestamps already
	// include the fixed system delay.
	SystemDelayApplied bool `json:"system_delay_is_applied,omitempty"`
}

// Recording is one continuous recording reduced to its event channels,
// keyed by channel label (e.g. "STI 014").
type Recording struct {
	Name       string                 `json:"name"`
	SampleRate float64                `json:"sfreq"`
	Channels   map[string]ChannelData `json:"channels"`
}

// Channel returns the data recorded on label.
func (r *Recording) Channel(label string) (ChannelData, bool) {
	if r == nil {
		return ChannelData{}, false
	}
	ch, ok := r.Channels[label]
	return ch, ok
}

// Job asks for a set of conditions to be evaluated on one recording.
// An empty Conditions list means every condition of the active template.
type Job struct {
	ID         string
	Recording  *Recording
	Conditions []string
}
