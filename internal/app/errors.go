package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoTemplate  = errors.New("no condition template configured")
	ErrInvalidJob  = errors.New("invalid job")
	ErrQueueFull   = errors.New("job queue full")
	ErrJobNotFound = errors.New("job not found")
)
