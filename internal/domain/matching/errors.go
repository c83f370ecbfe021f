package matching

import "errors"

// Sentinel kinds for matching errors. Configuration and missing-input errors
// abort the whole invocation before any record is emitted.
var (
	ErrInvalidWindow    = errors.New("invalid matching window")
	ErrInvalidCounts    = errors.New("invalid counts policy")
	ErrInvalidIDs       = errors.New("invalid target ids")
	ErrMissingConfig    = errors.New("missing matching configuration")
	ErrMissingMarkers   = errors.New("missing marker table")
	ErrMissingResponses = errors.New("missing response table")
	ErrUnknownOutcome   = errors.New("unknown outcome")
)
