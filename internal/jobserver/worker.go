package jobserver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/jobs/stats"
)

func (js *JobServer) worker(c context.Context) {
	for {
		select {
		case <-c.Done():
			logrus.Debug("Job worker stopping")
			return

		case j := <-js.jobChan:
			logrus.WithFields(logrus.Fields{"job": j.UUID, "type": j.Type}).Debug("Job received")
			if err := js.doWork(c, j); err != nil {
				logrus.WithError(err).WithField("job", j.UUID).Warn("Job failed")
			}
		}
	}
}

type worker interface {
	ExecuteJob(ctx context.Context, j types.Job) (types.JobResult, error)
}

func (js *JobServer) doWork(c context.Context, j types.Job) error {
	w, exists := js.jobWorkers[j.Type]

	if !exists {
		err := fmt.Errorf("%w: %s", ErrUnknownJobType, j.Type)
		js.stats.Add(source(j), stats.InvalidJobs, 1)
		js.results.Set(j.UUID, types.JobResult{
			UUID:   j.UUID,
			Type:   j.Type,
			Status: types.JobFailed,
			Error:  err.Error(),
			Job:    j,
		})
		return err
	}

	// Workers share upstream clients with their own rate limits, so one job of
	// each type runs at a time. The timeout covers running, not queueing.
	w.Lock()
	defer w.Unlock()

	ctx, cancel := context.WithTimeout(c, j.Timeout)
	defer cancel()

	result, err := w.w.ExecuteJob(ctx, j)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
	}

	result.UUID = j.UUID
	result.Type = j.Type
	result.Job = j
	if result.Error != "" {
		result.Status = types.JobFailed
	} else {
		result.Status = types.JobCompleted
	}
	js.results.Set(j.UUID, result)

	return err
}

func source(j types.Job) string {
	if j.UserID > 0 {
		return fmt.Sprintf("user:%d", j.UserID)
	}
	return "api"
}
