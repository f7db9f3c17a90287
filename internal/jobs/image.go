package jobs

import (
	"context"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/jobs/stats"
)

type ImageGenerationJob struct {
	gen   ImageGenerator
	stats *stats.StatsCollector
}

func NewImageGenerationJob(gen ImageGenerator, s *stats.StatsCollector) ImageGenerationJob {
	return ImageGenerationJob{gen: gen, stats: s}
}

func (w ImageGenerationJob) ExecuteJob(ctx context.Context, j types.Job) (types.JobResult, error) {
	var args types.ImageGenerationArguments
	if err := unmarshalArgs(j, &args); err != nil {
		w.stats.Add(source(j), stats.InvalidJobs, 1)
		return failed(j, err)
	}
	if w.gen == nil {
		return failed(j, ErrNotConfigured)
	}

	res, err := w.gen.Generate(ctx, imagegen.EnhancePrompt(args.Prompt, args.BrandName))
	if err != nil {
		w.stats.Add(source(j), stats.ImageErrors, 1)
		return failed(j, err)
	}
	w.stats.Add(source(j), stats.ImagesGenerated, 1)
	return jsonResult(j, res)
}
