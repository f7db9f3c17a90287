package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/jobs/stats"
)

type TelemetryJob struct {
	collector *stats.StatsCollector
}

func NewTelemetryJob(c *stats.StatsCollector) TelemetryJob {
	return TelemetryJob{collector: c}
}

func (t TelemetryJob) ExecuteJob(_ context.Context, j types.Job) (types.JobResult, error) {
	logrus.Debug("Executing telemetry job")

	if t.collector == nil {
		return types.JobResult{Error: "No StatsCollector configured", Job: j}, nil
	}

	data, err := t.collector.Json()
	if err != nil {
		return types.JobResult{
			Error: err.Error(),
			Job:   j,
		}, err
	}

	return types.JobResult{
		Data: data,
		Job:  j,
	}, nil
}
