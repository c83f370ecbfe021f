// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of matching workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many recent job ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ResultCapacity bounds how many job reports are kept for polling.
	ResultCapacity int `koanf:"result_capacity"`

	// TemplatePath points at the condition template (YAML).
	TemplatePath string `koanf:"template_path"`

	// MaxBodyBytes caps request bodies of the HTTP API.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		QueueSize:      1_024,
		WorkerCount:    runtime.NumCPU(),
		DedupeSize:     10_000,
		ResultCapacity: 10_000,
		TemplatePath:   "",
		MaxBodyBytes:   64 << 20,
	}
}
