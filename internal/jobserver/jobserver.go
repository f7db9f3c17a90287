package jobserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/jobs/stats"
)

// queueDepthPerWorker sizes the job channel relative to the worker count.
const queueDepthPerWorker = 100

type JobServer struct {
	jobChan chan types.Job
	workers int
	timeout time.Duration
	stats   *stats.StatsCollector

	results    *ResultCache
	jobWorkers map[string]*jobWorkerEntry
}

type jobWorkerEntry struct {
	w worker
	sync.Mutex
}

func NewJobServer(cfg config.JobServerConfig, deps jobs.Deps) *JobServer {
	logrus.Info("Initializing JobServer...")

	workers := cfg.Workers
	if workers <= 0 {
		logrus.Infof("Invalid worker count (%d), defaulting to 1 worker.", workers)
		workers = 1
	} else {
		logrus.Infof("Setting worker count to %d.", workers)
	}

	s := deps.Stats
	if s == nil {
		bufSize := cfg.StatsBufSize
		if bufSize == 0 {
			bufSize = 128
		}
		s = stats.StartCollector(bufSize, nil)
	}

	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	jobworkers := map[string]*jobWorkerEntry{
		jobs.VideoAnalysisType:      {w: jobs.NewVideoAnalysisJob(deps.Analysis, s)},
		jobs.TranscriptAnalysisType: {w: jobs.NewTranscriptAnalysisJob(deps.Analysis, s)},
		jobs.ChannelAnalysisType:    {w: jobs.NewChannelAnalysisJob(deps.Analysis, s)},
		jobs.ImageGenerationType:    {w: jobs.NewImageGenerationJob(deps.Images, s)},
		jobs.TelemetryJobType:       {w: jobs.NewTelemetryJob(s)},
	}
	for t := range jobworkers {
		logrus.Infof("Initialized job worker for: %s", t)
	}

	logrus.Info("JobServer initialization complete.")
	return &JobServer{
		jobChan:    make(chan types.Job, workers*queueDepthPerWorker),
		workers:    workers,
		timeout:    timeout,
		stats:      s,
		results:    NewResultCache(cfg.ResultCacheMaxSize, cfg.ResultCacheMaxAge),
		jobWorkers: jobworkers,
	}
}

// Run starts the workers and the result janitor and blocks until ctx is
// cancelled.
func (js *JobServer) Run(ctx context.Context) {
	go js.results.RunJanitor(ctx)
	for i := 0; i < js.workers; i++ {
		go js.worker(ctx)
	}

	<-ctx.Done()
}

// AddJob assigns the job a UUID and the configured timeout and queues it.
// The job is reported as pending until a worker finishes it.
func (js *JobServer) AddJob(j types.Job) (string, error) {
	j.Timeout = js.timeout
	j.UUID = uuid.New().String()

	js.results.Set(j.UUID, types.JobResult{UUID: j.UUID, Type: j.Type, Status: types.JobPending, Job: j})

	select {
	case js.jobChan <- j:
	default:
		js.results.Delete(j.UUID)
		return "", ErrQueueFull
	}
	return j.UUID, nil
}

func (js *JobServer) GetJobResult(uuid string) (types.JobResult, bool) {
	return js.results.Get(uuid)
}

// Stats returns the collector the workers report to.
func (js *JobServer) Stats() *stats.StatsCollector {
	return js.stats
}
