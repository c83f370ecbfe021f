package pipeline

import (
	detect "github.com/okian/epocher/internal/domain/detect"
	matching "github.com/okian/epocher/internal/domain/matching"
	model "github.com/okian/epocher/internal/domain/model"
)

// Channel is one named channel section of a condition.
type Channel struct {
	// Label is the recording channel the events come from, e.g. "STI 014".
	Label  string
	Params detect.Params
}

// Role binds a channel section to its part in matching.
type Role struct {
	Channel string
	Prefix  string
	Field   model.TimeField
}

// Stage is one matching pass against a response role.
type Stage struct {
	Response Role
	Config   *matching.Config
}

// IODStage matches nominal stimuli against a secondary onset detector.
type IODStage struct {
	Marker Role
	Stage
}

// Condition is one fully resolved condition of a template.
type Condition struct {
	Name   string
	Marker Role
	// TypeResult tags marker rows when no response matching is configured.
	TypeResult matching.Outcome
	IOD        *IODStage
	Response   *Stage
	Channels   map[string]Channel
	// Parameters is the merged configuration the condition was resolved from.
	Parameters map[string]any
}
