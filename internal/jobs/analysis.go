package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/jobs/stats"
)

type VideoAnalysisJob struct {
	svc   Analyzer
	stats *stats.StatsCollector
}

func NewVideoAnalysisJob(svc Analyzer, s *stats.StatsCollector) VideoAnalysisJob {
	return VideoAnalysisJob{svc: svc, stats: s}
}

func (w VideoAnalysisJob) ExecuteJob(ctx context.Context, j types.Job) (types.JobResult, error) {
	var args types.VideoAnalysisArguments
	if err := unmarshalArgs(j, &args); err != nil {
		w.stats.Add(source(j), stats.InvalidJobs, 1)
		return failed(j, err)
	}
	if w.svc == nil {
		return failed(j, ErrNotConfigured)
	}
	logrus.WithFields(logrus.Fields{"job": j.UUID, "url": args.YouTubeURL}).Debug("Executing video analysis job")

	res, err := w.svc.AnalyzeVideo(ctx, j.UserID, args.YouTubeURL)
	if err != nil {
		w.stats.Add(source(j), stats.VideoAnalysisErrors, 1)
		return failed(j, err)
	}
	w.stats.Add(source(j), stats.VideoAnalyses, 1)
	return jsonResult(j, res)
}

type TranscriptAnalysisJob struct {
	svc   Analyzer
	stats *stats.StatsCollector
}

func NewTranscriptAnalysisJob(svc Analyzer, s *stats.StatsCollector) TranscriptAnalysisJob {
	return TranscriptAnalysisJob{svc: svc, stats: s}
}

func (w TranscriptAnalysisJob) ExecuteJob(ctx context.Context, j types.Job) (types.JobResult, error) {
	var args types.VideoAnalysisArguments
	if err := unmarshalArgs(j, &args); err != nil {
		w.stats.Add(source(j), stats.InvalidJobs, 1)
		return failed(j, err)
	}
	if w.svc == nil {
		return failed(j, ErrNotConfigured)
	}

	res, err := w.svc.AnalyzeTranscript(ctx, j.UserID, args.YouTubeURL)
	if err != nil {
		w.stats.Add(source(j), stats.TranscriptErrors, 1)
		return failed(j, err)
	}
	w.stats.Add(source(j), stats.TranscriptAnalyses, 1)
	return jsonResult(j, res)
}

type ChannelAnalysisJob struct {
	svc   Analyzer
	stats *stats.StatsCollector
}

func NewChannelAnalysisJob(svc Analyzer, s *stats.StatsCollector) ChannelAnalysisJob {
	return ChannelAnalysisJob{svc: svc, stats: s}
}

// ExecuteJob analyzes the recent uploads of a channel. Videos that fail are
// reported inside the result rather than failing the job.
func (w ChannelAnalysisJob) ExecuteJob(ctx context.Context, j types.Job) (types.JobResult, error) {
	var args types.ChannelAnalysisArguments
	if err := unmarshalArgs(j, &args); err != nil {
		w.stats.Add(source(j), stats.InvalidJobs, 1)
		return failed(j, err)
	}
	if w.svc == nil {
		return failed(j, ErrNotConfigured)
	}

	res, err := w.svc.AnalyzeChannel(ctx, j.UserID, args.Channel, args.MaxVideos)
	if err != nil {
		w.stats.Add(source(j), stats.ChannelErrors, 1)
		return failed(j, err)
	}
	w.stats.Add(source(j), stats.ChannelAnalyses, 1)
	w.stats.Add(source(j), stats.VideoAnalyses, uint(res.VideosAnalyzed))
	return jsonResult(j, res)
}
