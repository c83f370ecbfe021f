package detect

import "errors"

var (
	// ErrNoMatchingEvents means the requested ids are absent from the channel.
	// Callers treat it as a warning and skip the condition.
	ErrNoMatchingEvents = errors.New("no matching events")
	// ErrNoSamples means the channel carries neither samples nor events.
	ErrNoSamples = errors.New("channel has no samples")
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)
