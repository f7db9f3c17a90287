package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/graph"
	"github.com/kartr/kartr/internal/store"
	"github.com/kartr/kartr/internal/youtube"
)

const (
	maxChannelVideos = 10
	maxContextRows   = 10
	maxSummaryChars  = 500
	watchURLPrefix   = "https://www.youtube.com/watch?v="
	channelIDLength  = 24
	defaultMaxVideos = 5
)

var (
	ErrChannelNotFound = errors.New("could not find channel")
	ErrNoVideos        = errors.New("failed to retrieve channel videos")

	askKeywordRe = regexp.MustCompile(`"([^"]+)"|(\w+)`)
)

type Store interface {
	AddAnalysis(ctx context.Context, a *store.Analysis) error
	AddSearch(ctx context.Context, userID int64, query, videoID string, kind store.SearchKind) error
	ListAnalyses(ctx context.Context, limit int) ([]store.Analysis, error)
	MatchAnalyses(ctx context.Context, keywords []string, limit int) ([]store.Analysis, error)
	SponsorCreatorPairs(ctx context.Context) ([]store.SponsorCreator, error)
}

// ContentAnalyzer is the LLM side of the analysis.
type ContentAnalyzer interface {
	AnalyzeVideo(ctx context.Context, d *youtube.VideoDetails) (*gemini.ContentAnalysis, error)
	AnalyzeTranscript(ctx context.Context, transcript, title string) (*gemini.TranscriptAnalysis, error)
	Answer(ctx context.Context, question, csvContext string) (string, error)
}

type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

type VideoAnalysis struct {
	VideoID         string                  `json:"video_id"`
	VideoTitle      string                  `json:"video_title"`
	ChannelName     string                  `json:"channel_name"`
	ViewCount       int64                   `json:"view_count"`
	SubscriberCount int64                   `json:"subscriber_count"`
	ThumbnailURL    string                  `json:"thumbnail_url"`
	PublishedAt     string                  `json:"published_at"`
	Analysis        *gemini.ContentAnalysis `json:"analysis"`
}

type TranscriptResult struct {
	VideoID           string                     `json:"video_id"`
	Title             string                     `json:"title"`
	TranscriptSummary string                     `json:"transcript_summary"`
	Analysis          *gemini.TranscriptAnalysis `json:"analysis"`
}

type SponsorFrequency struct {
	Name      string `json:"name"`
	Industry  string `json:"industry"`
	Frequency int    `json:"frequency"`
}

type ChannelVideo struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Error   string `json:"error,omitempty"`
}

// ChannelAnalysis summarizes the sponsors across recent uploads of a channel.
type ChannelAnalysis struct {
	ChannelID      string             `json:"channel_id"`
	VideosAnalyzed int                `json:"videos_analyzed"`
	Creator        *gemini.Entity     `json:"creator"`
	CommonSponsors []SponsorFrequency `json:"common_sponsors"`
	Videos         []ChannelVideo     `json:"videos"`
}

type AskResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Sources  int    `json:"sources"`
}

type Service struct {
	yt          youtube.API
	transcripts TranscriptSource
	ai          ContentAnalyzer
	store       Store
	now         func() time.Time
}

// NewService wires the analysis pipeline. yt and ai may be nil when their
// API keys are missing; the affected operations then fail with the
// corresponding ErrNotConfigured.
func NewService(yt youtube.API, transcripts TranscriptSource, ai ContentAnalyzer, st Store) *Service {
	return &Service{yt: yt, transcripts: transcripts, ai: ai, store: st, now: time.Now}
}

func (s *Service) ready() error {
	if s.yt == nil {
		return youtube.ErrNotConfigured
	}
	if s.ai == nil {
		return gemini.ErrNotConfigured
	}
	return nil
}

// AnalyzeVideo runs creator and sponsor analysis on a single video and
// stores one row per detected sponsor.
func (s *Service) AnalyzeVideo(ctx context.Context, userID int64, rawURL string) (*VideoAnalysis, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	res, err := s.analyzeVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if userID > 0 {
		if err := s.store.AddSearch(ctx, userID, rawURL, videoID, store.SearchAnalysis); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to record analysis search")
		}
	}
	return res, nil
}

func (s *Service) analyzeVideo(ctx context.Context, videoID string) (*VideoAnalysis, error) {
	d, err := s.yt.VideoDetails(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve video details: %w", err)
	}
	ca, err := s.ai.AnalyzeVideo(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, watchURLPrefix+videoID, ca); err != nil {
		return nil, err
	}
	return &VideoAnalysis{
		VideoID:         videoID,
		VideoTitle:      d.Title,
		ChannelName:     d.ChannelName,
		ViewCount:       d.ViewCount,
		SubscriberCount: d.SubscriberCount,
		ThumbnailURL:    d.ThumbnailURL,
		PublishedAt:     d.PublishedAt,
		Analysis:        ca,
	}, nil
}

// persist writes one analysis row per sponsor. A video without sponsors
// still gets a row so the creator is known.
func (s *Service) persist(ctx context.Context, url string, ca *gemini.ContentAnalysis) error {
	sponsors := ca.Sponsors
	if len(sponsors) == 0 {
		sponsors = []gemini.Entity{{}}
	}
	now := s.now()
	for _, sp := range sponsors {
		row := &store.Analysis{
			CreatedAt:       now,
			YouTubeURL:      url,
			CreatorName:     ca.Creator.Name,
			CreatorIndustry: ca.Creator.Industry,
			SponsorName:     sp.Name,
			SponsorIndustry: sp.Industry,
		}
		if err := s.store.AddAnalysis(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// AnalyzeTranscript extracts creator and sponsor from the captions of a video.
func (s *Service) AnalyzeTranscript(ctx context.Context, userID int64, rawURL string) (*TranscriptResult, error) {
	if s.ai == nil {
		return nil, gemini.ErrNotConfigured
	}
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	title := ""
	if s.yt != nil {
		if v, err := s.yt.VideoStats(ctx, videoID); err == nil {
			title = v.Title
		} else {
			logrus.WithError(err).WithField("video_id", videoID).Debug("Continuing transcript analysis without a title")
		}
	}

	transcript, err := s.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}
	ta, err := s.ai.AnalyzeTranscript(ctx, transcript, title)
	if err != nil {
		return nil, err
	}

	summary := truncate(transcript, maxSummaryChars)
	row := &store.Analysis{
		CreatedAt:         s.now(),
		YouTubeURL:        rawURL,
		CreatorName:       ta.CreatorName,
		CreatorIndustry:   ta.CreatorIndustry,
		SponsorName:       ta.SponsorName,
		SponsorIndustry:   ta.SponsorIndustry,
		TranscriptSummary: summary,
	}
	if err := s.store.AddAnalysis(ctx, row); err != nil {
		return nil, err
	}
	if userID > 0 {
		if err := s.store.AddSearch(ctx, userID, rawURL, videoID, store.SearchAnalysis); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to record transcript search")
		}
	}
	return &TranscriptResult{VideoID: videoID, Title: title, TranscriptSummary: summary, Analysis: ta}, nil
}

// AnalyzeChannel analyzes up to maxVideos recent uploads (clamped to 1..10)
// and aggregates their sponsors.
func (s *Service) AnalyzeChannel(ctx context.Context, userID int64, nameOrID string, maxVideos int) (*ChannelAnalysis, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	nameOrID = strings.TrimSpace(nameOrID)
	if maxVideos == 0 {
		maxVideos = defaultMaxVideos
	}
	maxVideos = max(1, min(maxChannelVideos, maxVideos))

	channelID := nameOrID
	if !(strings.HasPrefix(nameOrID, "UC") && len(nameOrID) == channelIDLength) {
		id, err := s.yt.SearchChannelID(ctx, nameOrID)
		if err != nil {
			if errors.Is(err, youtube.ErrNotFound) {
				return nil, fmt.Errorf("%w with name: %s", ErrChannelNotFound, nameOrID)
			}
			return nil, err
		}
		channelID = id
	}

	videos, err := s.yt.ChannelVideos(ctx, channelID, int64(maxVideos))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoVideos, err)
	}
	if len(videos) == 0 {
		return nil, ErrNoVideos
	}

	out := &ChannelAnalysis{ChannelID: channelID, CommonSponsors: []SponsorFrequency{}}
	var analyses []*gemini.ContentAnalysis
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"channel_id": channelID, "video_id": v.ID}).Infof("Analyzing video: %s", v.Title)
		entry := ChannelVideo{VideoID: v.ID, Title: v.Title}
		res, err := s.analyzeVideo(ctx, v.ID)
		if err != nil {
			entry.Error = err.Error()
		} else {
			analyses = append(analyses, res.Analysis)
			if out.Creator == nil {
				c := res.Analysis.Creator
				out.Creator = &c
			}
		}
		out.Videos = append(out.Videos, entry)
	}
	out.VideosAnalyzed = len(out.Videos)
	out.CommonSponsors = AggregateSponsors(analyses)
	if userID > 0 {
		if err := s.store.AddSearch(ctx, userID, nameOrID, "", store.SearchAnalysis); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to record channel search")
		}
	}
	return out, nil
}

// AggregateSponsors counts sponsors across analyses. Each sponsor keeps the
// industry it was first seen with. The result is ordered by frequency, then
// by name.
func AggregateSponsors(analyses []*gemini.ContentAnalysis) []SponsorFrequency {
	index := map[string]int{}
	out := []SponsorFrequency{}
	for _, a := range analyses {
		if a == nil {
			continue
		}
		for _, sp := range a.Sponsors {
			name := strings.TrimSpace(sp.Name)
			if name == "" {
				continue
			}
			if i, ok := index[name]; ok {
				out[i].Frequency++
				continue
			}
			index[name] = len(out)
			out = append(out, SponsorFrequency{Name: name, Industry: sp.Industry, Frequency: 1})
		}
	}
	slices.SortStableFunc(out, func(a, b SponsorFrequency) int {
		if a.Frequency != b.Frequency {
			return b.Frequency - a.Frequency
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Ask answers a free form question using matching analysis rows as context.
func (s *Service) Ask(ctx context.Context, question string) (*AskResult, error) {
	if s.ai == nil {
		return nil, gemini.ErrNotConfigured
	}
	rows, err := s.store.MatchAnalyses(ctx, QueryKeywords(question), maxContextRows)
	if err != nil {
		return nil, err
	}
	csvContext := ""
	if len(rows) > 0 {
		var b strings.Builder
		if err := writeCSV(&b, rows, false); err != nil {
			return nil, err
		}
		csvContext = b.String()
	}
	answer, err := s.ai.Answer(ctx, question, csvContext)
	if err != nil {
		return nil, err
	}
	return &AskResult{Question: question, Answer: answer, Sources: len(rows)}, nil
}

// QueryKeywords returns the quoted phrases and single words of a question,
// lowercased.
func QueryKeywords(q string) []string {
	var out []string
	for _, m := range askKeywordRe.FindAllStringSubmatch(strings.ToLower(q), -1) {
		kw := m[1]
		if kw == "" {
			kw = m[2]
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func (s *Service) List(ctx context.Context, limit int) ([]store.Analysis, error) {
	rows, err := s.store.ListAnalyses(ctx, limit)
	if rows == nil {
		rows = []store.Analysis{}
	}
	return rows, err
}

// Graph builds the sponsor/creator graph over every stored analysis.
func (s *Service) Graph(ctx context.Context) (*graph.Graph, error) {
	rows, err := s.store.SponsorCreatorPairs(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]graph.Pair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, graph.Pair{Sponsor: r.Sponsor, Creator: r.Creator})
	}
	return graph.Build(pairs), nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
