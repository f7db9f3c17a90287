package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/retry"
)

const (
	defaultWatchURL     = "https://www.youtube.com/watch?v="
	captionTracksMarker = `"captionTracks":`
	transcriptUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// TranscriptFetcher scrapes caption tracks from the public watch page.
type TranscriptFetcher struct {
	watchURL  string
	languages []string
	timeout   time.Duration
	retries   uint64
}

type TranscriptOption func(*TranscriptFetcher)

// WithWatchURL overrides the watch page prefix the video id is appended to.
func WithWatchURL(prefix string) TranscriptOption {
	return func(f *TranscriptFetcher) { f.watchURL = prefix }
}

func WithLanguages(langs ...string) TranscriptOption {
	return func(f *TranscriptFetcher) { f.languages = langs }
}

func WithTranscriptRetries(n uint64) TranscriptOption {
	return func(f *TranscriptFetcher) { f.retries = n }
}

func NewTranscriptFetcher(opts ...TranscriptOption) *TranscriptFetcher {
	f := &TranscriptFetcher{
		watchURL:  defaultWatchURL,
		languages: []string{"en"},
		timeout:   30 * time.Second,
		retries:   3,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns the transcript of a video as a single space separated string.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	page, err := f.get(ctx, f.watchURL+videoID)
	if err != nil {
		return "", fmt.Errorf("error loading watch page: %w", err)
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return "", err
	}
	track := pickTrack(tracks, f.languages)
	logrus.WithFields(logrus.Fields{"video_id": videoID, "language": track.LanguageCode}).Debug("Fetching caption track")

	body, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("error loading captions: %w", err)
	}
	text, err := parseTimedText(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}

// get visits a single URL and returns the body. Rate limited responses are
// retried with exponential backoff.
func (f *TranscriptFetcher) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	status := 0

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(transcriptUserAgent),
	)
	c.SetRequestTimeout(f.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		logrus.WithError(err).WithFields(logrus.Fields{"url": r.Request.URL.String(), "status": r.StatusCode}).Warn("Transcript request failed")
	})

	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		status, body = 0, nil
		err := c.Visit(u)
		if err == nil && body != nil {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("empty response from %s", u)
		}
		if status == http.StatusTooManyRequests {
			return err
		}
		if status == http.StatusNotFound {
			return backoff.Permanent(ErrNotFound)
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(retry.Exponential(500*time.Millisecond, f.retries), ctx))
	return body, err
}

func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	idx := bytes.Index(page, []byte(captionTracksMarker))
	if idx < 0 {
		return nil, ErrNoTranscript
	}
	var tracks []captionTrack
	dec := json.NewDecoder(bytes.NewReader(page[idx+len(captionTracksMarker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("error decoding caption tracks: %w", err)
	}
	usable := tracks[:0]
	for _, t := range tracks {
		if t.BaseURL != "" {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoTranscript
	}
	return usable, nil
}

// pickTrack prefers a manual track in one of langs, then an auto-generated
// one, then whatever comes first.
func pickTrack(tracks []captionTrack, langs []string) captionTrack {
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if strings.HasPrefix(t.LanguageCode, lang) {
				return t
			}
		}
	}
	return tracks[0]
}

func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("error parsing captions: %w", err)
	}
	parts := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		text := strings.Join(strings.Fields(html.UnescapeString(l.Text)), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// IsTranscriptMissing reports whether err means the video simply has no
// captions, as opposed to a transport failure.
func IsTranscriptMissing(err error) bool {
	return errors.Is(err, ErrNoTranscript)
}
