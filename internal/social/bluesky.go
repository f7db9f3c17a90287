package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
)

const (
	createSessionPath = "/xrpc/com.atproto.server.createSession"
	uploadBlobPath    = "/xrpc/com.atproto.repo.uploadBlob"
	createRecordPath  = "/xrpc/com.atproto.repo.createRecord"
	feedPostType      = "app.bsky.feed.post"
	embedImagesType   = "app.bsky.embed.images"
)

// Bluesky posts images to an AT Protocol PDS with an app password.
type Bluesky struct {
	pds      string
	handle   string
	password string
	http     *http.Client
	health   health.Reporter
	now      func() time.Time
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
}

type aspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type embedImage struct {
	Alt         string          `json:"alt"`
	Image       json.RawMessage `json:"image"`
	AspectRatio *aspectRatio    `json:"aspectRatio,omitempty"`
}

type feedPost struct {
	Type      string `json:"$type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	Embed     struct {
		Type   string       `json:"$type"`
		Images []embedImage `json:"images"`
	} `json:"embed"`
}

func NewBluesky(cfg config.SocialConfig, reporter health.Reporter) *Bluesky {
	pds := cfg.BlueskyPDS
	if pds == "" {
		pds = config.DefaultBlueskyPDS
	}
	return &Bluesky{
		pds:      strings.TrimRight(pds, "/"),
		handle:   cfg.BlueskyHandle,
		password: cfg.BlueskyAppPassword,
		http:     &http.Client{Timeout: 60 * time.Second},
		health:   reporter,
		now:      time.Now,
	}
}

func (b *Bluesky) Configured() bool {
	return b.handle != "" && b.password != ""
}

// Post logs in, uploads the image as a blob and creates a feed post
// embedding it. The caption doubles as alt text.
func (b *Bluesky) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	if !b.Configured() {
		return nil, ErrNotConfigured
	}
	if req.ContentType != "" && req.ContentType != ContentImage {
		return nil, fmt.Errorf("bluesky %s: %w", req.ContentType, ErrUnsupportedContent)
	}
	img, err := os.ReadFile(req.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("error reading media: %w", err)
	}

	res, err := b.post(ctx, img, req.Caption)
	health.Report(b.health, health.Bluesky, err)
	return res, err
}

func (b *Bluesky) post(ctx context.Context, img []byte, caption string) (*PostResult, error) {
	var sess blueskySession
	login := map[string]string{"identifier": b.handle, "password": b.password}
	if err := b.call(ctx, createSessionPath, "", "application/json", mustJSON(login), &sess); err != nil {
		return nil, fmt.Errorf("bluesky login: %w", err)
	}

	var blob struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := b.call(ctx, uploadBlobPath, sess.AccessJwt, http.DetectContentType(img), img, &blob); err != nil {
		return nil, fmt.Errorf("bluesky upload: %w", err)
	}

	record := feedPost{Type: feedPostType, Text: caption, CreatedAt: b.now().UTC().Format(time.RFC3339)}
	record.Embed.Type = embedImagesType
	record.Embed.Images = []embedImage{{Alt: caption, Image: blob.Blob, AspectRatio: imageAspect(img)}}

	var created struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	body := map[string]any{"repo": sess.DID, "collection": feedPostType, "record": record}
	if err := b.call(ctx, createRecordPath, sess.AccessJwt, "application/json", mustJSON(body), &created); err != nil {
		return nil, fmt.Errorf("bluesky post: %w", err)
	}
	logrus.WithField("uri", created.URI).Info("Posted to Bluesky")
	return &PostResult{Platform: PlatformBluesky, ID: created.URI}, nil
}

func (b *Bluesky) call(ctx context.Context, path, token, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.pds+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkResponse(PlatformBluesky, res); err != nil {
		return err
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// imageAspect returns nil for formats the standard decoders do not know.
func imageAspect(img []byte) *aspectRatio {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return nil
	}
	return &aspectRatio{Width: cfg.Width, Height: cfg.Height}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
