package jobs_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/analysis"
	"github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/imagegen"
	. "github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/jobs/stats"
)

type fakeAnalyzer struct {
	err       error
	gotUser   int64
	gotURL    string
	gotMax    int
	gotTarget string
}

func (f *fakeAnalyzer) AnalyzeVideo(_ context.Context, userID int64, url string) (*analysis.VideoAnalysis, error) {
	f.gotUser, f.gotURL = userID, url
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.VideoAnalysis{VideoID: "dQw4w9WgXcQ", Analysis: &gemini.ContentAnalysis{Creator: gemini.Entity{Name: "Rick"}}}, nil
}

func (f *fakeAnalyzer) AnalyzeTranscript(_ context.Context, userID int64, url string) (*analysis.TranscriptResult, error) {
	f.gotUser, f.gotURL = userID, url
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.TranscriptResult{VideoID: "dQw4w9WgXcQ", TranscriptSummary: "never gonna"}, nil
}

func (f *fakeAnalyzer) AnalyzeChannel(_ context.Context, userID int64, target string, max int) (*analysis.ChannelAnalysis, error) {
	f.gotUser, f.gotTarget, f.gotMax = userID, target, max
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.ChannelAnalysis{ChannelID: "UC123", VideosAnalyzed: 3}, nil
}

type fakeImages struct {
	prompt string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (*imagegen.Result, error) {
	f.prompt = prompt
	return &imagegen.Result{ImageURL: "https://img.example/1.png"}, nil
}

var _ = Describe("Workers", func() {
	var (
		ctx       context.Context
		collector *stats.StatsCollector
		analyzer  *fakeAnalyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		collector = stats.StartCollector(16, nil)
		analyzer = &fakeAnalyzer{}
	})

	job := func(typ string, args types.JobArguments) types.Job {
		return types.Job{Type: typ, UUID: "job-1", UserID: 7, Arguments: args}
	}

	It("runs a video analysis for the submitting user", func() {
		res, err := NewVideoAnalysisJob(analyzer, collector).ExecuteJob(ctx, job(VideoAnalysisType, types.JobArguments{"youtube_url": "https://youtu.be/dQw4w9WgXcQ"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(analyzer.gotUser).To(Equal(int64(7)))
		Expect(analyzer.gotURL).To(Equal("https://youtu.be/dQw4w9WgXcQ"))

		var out analysis.VideoAnalysis
		Expect(res.Unmarshal(&out)).To(Succeed())
		Expect(out.Analysis.Creator.Name).To(Equal("Rick"))
		Eventually(func() uint { return collector.Get("user:7", stats.VideoAnalyses) }).Should(Equal(uint(1)))
	})

	It("counts failures", func() {
		analyzer.err = errors.New("quota exceeded")
		res, err := NewTranscriptAnalysisJob(analyzer, collector).ExecuteJob(ctx, job(TranscriptAnalysisType, types.JobArguments{"youtube_url": "x"}))
		Expect(err).To(MatchError("quota exceeded"))
		Expect(res.Error).To(Equal("quota exceeded"))
		Eventually(func() uint { return collector.Get("user:7", stats.TranscriptErrors) }).Should(Equal(uint(1)))
	})

	It("rejects missing arguments", func() {
		res, err := NewChannelAnalysisJob(analyzer, collector).ExecuteJob(ctx, job(ChannelAnalysisType, types.JobArguments{}))
		Expect(err).To(HaveOccurred())
		Expect(res.Error).To(ContainSubstring("invalid arguments"))
		Expect(analyzer.gotTarget).To(BeEmpty())
		Eventually(func() uint { return collector.Get("user:7", stats.InvalidJobs) }).Should(Equal(uint(1)))
	})

	It("passes channel arguments through", func() {
		res, err := NewChannelAnalysisJob(analyzer, collector).ExecuteJob(ctx, job(ChannelAnalysisType, types.JobArguments{"channel": "MKBHD", "max_videos": 3}))
		Expect(err).NotTo(HaveOccurred())
		Expect(analyzer.gotTarget).To(Equal("MKBHD"))
		Expect(analyzer.gotMax).To(Equal(3))
		var out analysis.ChannelAnalysis
		Expect(res.Unmarshal(&out)).To(Succeed())
		Expect(out.VideosAnalyzed).To(Equal(3))
		Eventually(func() uint { return collector.Get("user:7", stats.VideoAnalyses) }).Should(Equal(uint(3)))
	})

	It("generates images with the brand in the prompt", func() {
		images := &fakeImages{}
		res, err := NewImageGenerationJob(images, nil).ExecuteJob(ctx, job(ImageGenerationType, types.JobArguments{"prompt": "A city at night", "brand_name": "Kartr"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(images.prompt).To(Equal("A city at night This image is brought to you by Kartr."))
		var out imagegen.Result
		Expect(res.Unmarshal(&out)).To(Succeed())
		Expect(out.ImageURL).To(Equal("https://img.example/1.png"))
	})

	It("fails when the dependency is missing", func() {
		_, err := NewImageGenerationJob(nil, nil).ExecuteJob(ctx, job(ImageGenerationType, types.JobArguments{"prompt": "x"}))
		Expect(err).To(MatchError(ErrNotConfigured))
	})
})
