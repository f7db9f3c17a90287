package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/analysis"
	"github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/jobs/stats"
)

const (
	VideoAnalysisType      = "video-analysis"
	ChannelAnalysisType    = "channel-analysis"
	TranscriptAnalysisType = "transcript-analysis"
	ImageGenerationType    = "image-generation"
	TelemetryJobType       = "telemetry"
)

var ErrNotConfigured = errors.New("job dependency is not configured")

// Analyzer is implemented by analysis.Service.
type Analyzer interface {
	AnalyzeVideo(ctx context.Context, userID int64, rawURL string) (*analysis.VideoAnalysis, error)
	AnalyzeTranscript(ctx context.Context, userID int64, rawURL string) (*analysis.TranscriptResult, error)
	AnalyzeChannel(ctx context.Context, userID int64, nameOrID string, maxVideos int) (*analysis.ChannelAnalysis, error)
}

// ImageGenerator is implemented by imagegen.Client.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Result, error)
}

// Deps are the services the workers delegate to. Nil services make their
// jobs fail with ErrNotConfigured.
type Deps struct {
	Analysis Analyzer
	Images   ImageGenerator
	Stats    *stats.StatsCollector
}

var validate = validator.New()

func unmarshalArgs(j types.Job, v any) error {
	if err := j.Arguments.Unmarshal(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// source is the stats key a job is accounted under.
func source(j types.Job) string {
	if j.UserID > 0 {
		return fmt.Sprintf("user:%d", j.UserID)
	}
	return "api"
}

func jsonResult(j types.Job, v any) (types.JobResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return types.JobResult{Error: err.Error(), Job: j}, err
	}
	return types.JobResult{Data: data, Job: j}, nil
}

func failed(j types.Job, err error) (types.JobResult, error) {
	return types.JobResult{Error: err.Error(), Job: j}, err
}
