package jobserver

import "errors"

var (
	// ErrQueueFull is returned when the job queue cannot take another job
	ErrQueueFull = errors.New("queue is full")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownJobType is returned when no worker handles the job type
	ErrUnknownJobType = errors.New("unknown job type")
)
