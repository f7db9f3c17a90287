package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kartr/kartr/api/types"
)

type JobResult struct {
	UUID       string
	maxRetries int
	delay      time.Duration
	client     *Client
}

func (jr *JobResult) SetMaxRetries(maxRetries int) {
	jr.maxRetries = maxRetries
}

func (jr *JobResult) SetDelay(delay time.Duration) {
	jr.delay = delay
}

// Get polls the server until the job is done or the retries run out.
func (jr *JobResult) Get(ctx context.Context) (*types.JobResult, error) {
	for retries := 0; retries < jr.maxRetries; retries++ {
		res, err := jr.client.GetJobResult(ctx, jr.UUID)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case types.JobCompleted:
			return res, nil
		case types.JobFailed:
			return res, errors.New(res.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jr.delay):
		}
	}
	return nil, fmt.Errorf("max retries reached: %w", ErrJobPending)
}
