package analysis_test

import (
	"context"
	"fmt"

	"github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/youtube"
)

type fakeYouTube struct {
	videos   map[string]*youtube.VideoDetails
	channels map[string][]youtube.VideoSummary
	names    map[string]string
}

func (f *fakeYouTube) VideoStats(_ context.Context, id string) (*youtube.VideoStats, error) {
	d, ok := f.videos[id]
	if !ok {
		return nil, youtube.ErrNotFound
	}
	return &youtube.VideoStats{VideoID: id, Title: d.Title, ChannelID: d.ChannelID}, nil
}

func (f *fakeYouTube) ChannelStats(_ context.Context, id string) (*youtube.ChannelStats, error) {
	return &youtube.ChannelStats{ChannelID: id}, nil
}

func (f *fakeYouTube) ResolveChannel(ctx context.Context, ref youtube.ChannelRef) (*youtube.ChannelStats, error) {
	return f.ChannelStats(ctx, ref.Value)
}

func (f *fakeYouTube) SearchChannelID(_ context.Context, name string) (string, error) {
	if id, ok := f.names[name]; ok {
		return id, nil
	}
	return "", fmt.Errorf("channel %q: %w", name, youtube.ErrNotFound)
}

func (f *fakeYouTube) ChannelVideos(_ context.Context, id string, max int64) ([]youtube.VideoSummary, error) {
	v := f.channels[id]
	if int64(len(v)) > max {
		v = v[:max]
	}
	return v, nil
}

func (f *fakeYouTube) Comments(context.Context, string, int64, string) ([]youtube.Comment, error) {
	return nil, nil
}

func (f *fakeYouTube) VideoDetails(_ context.Context, id string) (*youtube.VideoDetails, error) {
	d, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", id, youtube.ErrNotFound)
	}
	return d, nil
}

// fakeAnalyzer answers from the sponsors listed per video title.
type fakeAnalyzer struct {
	sponsors  map[string][]gemini.Entity
	creator   gemini.Entity
	lastQ     string
	lastCSV   string
	failTitle string
}

func (f *fakeAnalyzer) AnalyzeVideo(_ context.Context, d *youtube.VideoDetails) (*gemini.ContentAnalysis, error) {
	if d.Title == f.failTitle {
		return nil, fmt.Errorf("model refused")
	}
	sp := f.sponsors[d.Title]
	if sp == nil {
		sp = []gemini.Entity{}
	}
	return &gemini.ContentAnalysis{Creator: f.creator, Sponsors: sp}, nil
}

func (f *fakeAnalyzer) AnalyzeTranscript(_ context.Context, transcript, title string) (*gemini.TranscriptAnalysis, error) {
	return &gemini.TranscriptAnalysis{
		CreatorName: f.creator.Name, CreatorIndustry: f.creator.Industry,
		SponsorName: "Acme", SponsorIndustry: gemini.Unknown,
	}, nil
}

func (f *fakeAnalyzer) Answer(_ context.Context, q, csvContext string) (string, error) {
	f.lastQ, f.lastCSV = q, csvContext
	return "answer", nil
}

type fakeTranscripts struct {
	text string
	err  error
}

func (f fakeTranscripts) Fetch(context.Context, string) (string, error) {
	return f.text, f.err
}
