// Package batch matches recording files against a condition template from
// the command line.
package batch

import (
	"errors"
	"time"
)

// Sentinel errors for batch runs.
var (
	ErrNoInputs    = errors.New("no recordings given")
	ErrNoTemplate  = errors.New("no template given")
	ErrBadInput    = errors.New("unreadable recording")
	ErrWriteResult = errors.New("cannot write result")
)

// Config holds the parameters of one batch run.
type Config struct {
	TemplatePath string   // condition template (YAML)
	Conditions   []string // empty means every template condition
	Inputs       []string // recording JSON files
	OutDir       string   // one <recording>.json per input; empty disables output
	Workers      int      // concurrent recordings
	Verbose      bool
}

// Stats summarises a batch run.
type Stats struct {
	RunID      string
	Recordings int
	Unreadable int
	Aborted    int
	OK         int
	Skipped    int
	Failed     int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
