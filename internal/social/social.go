package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	PlatformBluesky   = "bluesky"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"

	ContentImage = "image"
	ContentVideo = "video"
)

var (
	ErrNotConfigured       = errors.New("platform credentials are not configured")
	ErrUnsupportedContent  = errors.New("content type is not supported by this platform")
	ErrMediaURLRequired    = errors.New("a public media URL is required")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

type PostRequest struct {
	ContentType   string
	MediaPath     string
	MediaURL      string
	ThumbnailPath string
	Title         string
	Caption       string
}

type PostResult struct {
	Platform string `json:"platform"`
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
}

type Poster interface {
	Post(ctx context.Context, req PostRequest) (*PostResult, error)
}

// Posters maps a platform name to the client that publishes there.
type Posters map[string]Poster

func (p Posters) Post(ctx context.Context, platform string, req PostRequest) (*PostResult, error) {
	poster, ok := p[platform]
	if !ok || poster == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return poster.Post(ctx, req)
}

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Platform, e.Status, e.Body)
}

func checkResponse(platform string, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &APIError{Platform: platform, Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
}
