package social

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
)

const (
	uploadCategory = "22" // People & Blogs
	uploadPrivacy  = "private"
)

var uploadTags = []string{"influencer", "content"}

// YouTubeUploader publishes videos to the channel the OAuth token belongs to.
type YouTubeUploader struct {
	service *yt.Service
	health  health.Reporter
}

// NewYouTubeUploader reads the OAuth client secrets and a previously stored
// token. The token is refreshed automatically when it expires.
func NewYouTubeUploader(ctx context.Context, cfg config.SocialConfig, reporter health.Reporter) (*YouTubeUploader, error) {
	if cfg.YouTubeClientSecrets == "" || cfg.YouTubeTokenFile == "" {
		return nil, ErrNotConfigured
	}
	secrets, err := os.ReadFile(cfg.YouTubeClientSecrets)
	if err != nil {
		return nil, fmt.Errorf("error reading client secrets: %w", err)
	}
	oc, err := google.ConfigFromJSON(secrets, yt.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("error parsing client secrets: %w", err)
	}
	tok, err := readToken(cfg.YouTubeTokenFile)
	if err != nil {
		return nil, err
	}
	return NewYouTubeUploaderWithOptions(ctx, reporter, option.WithTokenSource(oc.TokenSource(ctx, tok)))
}

func NewYouTubeUploaderWithOptions(ctx context.Context, reporter health.Reporter, opts ...option.ClientOption) (*YouTubeUploader, error) {
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}
	return &YouTubeUploader{service: service, health: reporter}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("error decoding token file: %w", err)
	}
	return &tok, nil
}

// Post uploads the video as private. A thumbnail failure is logged and does
// not fail the upload.
func (u *YouTubeUploader) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	if req.ContentType != "" && req.ContentType != ContentVideo {
		return nil, fmt.Errorf("youtube %s: %w", req.ContentType, ErrUnsupportedContent)
	}
	res, err := u.upload(ctx, req)
	health.Report(u.health, health.YouTubeUpload, err)
	return res, err
}

func (u *YouTubeUploader) upload(ctx context.Context, req PostRequest) (*PostResult, error) {
	f, err := os.Open(req.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("error opening video: %w", err)
	}
	defer f.Close()

	title := req.Title
	if title == "" {
		title = req.Caption
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       title,
			Description: req.Caption,
			Tags:        uploadTags,
			CategoryId:  uploadCategory,
		},
		Status: &yt.VideoStatus{PrivacyStatus: uploadPrivacy, SelfDeclaredMadeForKids: false, ForceSendFields: []string{"SelfDeclaredMadeForKids"}},
	}
	created, err := u.service.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}
	logrus.WithField("video_id", created.Id).Info("Uploaded video to YouTube")

	if req.ThumbnailPath != "" {
		if err := u.setThumbnail(ctx, created.Id, req.ThumbnailPath); err != nil {
			logrus.WithError(err).WithField("video_id", created.Id).Warn("Video uploaded but thumbnail upload failed")
		}
	}
	return &PostResult{Platform: PlatformYouTube, ID: created.Id, URL: "https://www.youtube.com/watch?v=" + created.Id}, nil
}

func (u *YouTubeUploader) setThumbnail(ctx context.Context, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = u.service.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	return err
}
