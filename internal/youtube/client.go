package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/retry"
)

// API is the subset of the YouTube Data API the rest of the application uses.
type API interface {
	VideoStats(ctx context.Context, videoID string) (*VideoStats, error)
	ChannelStats(ctx context.Context, channelID string) (*ChannelStats, error)
	ResolveChannel(ctx context.Context, ref ChannelRef) (*ChannelStats, error)
	SearchChannelID(ctx context.Context, name string) (string, error)
	ChannelVideos(ctx context.Context, channelID string, max int64) ([]VideoSummary, error)
	Comments(ctx context.Context, videoID string, max int64, order string) ([]Comment, error)
	VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error)
}

// Client wraps the YouTube Data API service.
type Client struct {
	service *yt.Service
	health  health.Reporter
	retries uint64
}

// NewClient creates a client authenticated with an API key. Extra options
// (endpoint, http client) are passed through to the service.
func NewClient(ctx context.Context, apiKey string, reporter health.Reporter, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}
	return &Client{service: service, health: reporter, retries: 3}, nil
}

// call runs op with exponential backoff. Only server side and rate limit
// errors are retried.
func (c *Client) call(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(func() error {
		err := op()
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(retry.Limit(b, c.retries), ctx))

	if err != nil && !errors.Is(err, ErrNotFound) {
		health.Report(c.health, health.YouTube, err)
	} else {
		health.Report(c.health, health.YouTube, nil)
	}
	return err
}

func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500 || gerr.Code == http.StatusTooManyRequests
	}
	return false
}

func (c *Client) VideoStats(ctx context.Context, videoID string) (*VideoStats, error) {
	var v *yt.Video
	err := c.call(ctx, func() error {
		resp, err := c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(videoID).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		v = resp.Items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &VideoStats{VideoID: videoID}
	if s := v.Snippet; s != nil {
		out.Title = s.Title
		out.ChannelID = s.ChannelId
		out.ChannelTitle = s.ChannelTitle
		out.PublishDate = s.PublishedAt
		out.Description = s.Description
		out.ThumbnailURL = thumbnailURL(s.Thumbnails)
	}
	if st := v.Statistics; st != nil {
		out.ViewCount = int64(st.ViewCount)
		out.LikeCount = int64(st.LikeCount)
		out.CommentCount = int64(st.CommentCount)
	}
	if cd := v.ContentDetails; cd != nil {
		out.Duration = cd.Duration
	}
	return out, nil
}

func (c *Client) ChannelStats(ctx context.Context, channelID string) (*ChannelStats, error) {
	return c.ResolveChannel(ctx, ChannelRef{Value: channelID, Kind: ChannelByID})
}

// ResolveChannel looks a channel up by id, legacy username or handle. Handles
// that the API does not resolve fall back to a channel search.
func (c *Client) ResolveChannel(ctx context.Context, ref ChannelRef) (*ChannelStats, error) {
	parts := []string{"snippet", "statistics", "contentDetails", "brandingSettings"}
	var ch *yt.Channel
	err := c.call(ctx, func() error {
		call := c.service.Channels.List(parts).Context(ctx)
		switch ref.Kind {
		case ChannelByID:
			call = call.Id(ref.Value)
		case ChannelByUsername:
			call = call.ForUsername(ref.Value)
		case ChannelByHandle:
			call = call.ForHandle(ref.Value)
		default:
			return fmt.Errorf("unknown channel reference kind %q", ref.Kind)
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("channel %s: %w", ref.Value, ErrNotFound)
		}
		ch = resp.Items[0]
		return nil
	})
	if errors.Is(err, ErrNotFound) && ref.Kind == ChannelByHandle {
		id, serr := c.SearchChannelID(ctx, ref.Value)
		if serr != nil {
			return nil, serr
		}
		return c.ChannelStats(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return channelStats(ch), nil
}

func channelStats(ch *yt.Channel) *ChannelStats {
	out := &ChannelStats{ChannelID: ch.Id, Country: "Unknown"}
	if s := ch.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.CreatedAt = s.PublishedAt
		out.ThumbnailURL = thumbnailURL(s.Thumbnails)
		if s.Country != "" {
			out.Country = s.Country
		}
	}
	if st := ch.Statistics; st != nil {
		out.SubscriberCount = int64(st.SubscriberCount)
		out.VideoCount = int64(st.VideoCount)
		out.ViewCount = int64(st.ViewCount)
	}
	if cd := ch.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		out.UploadsPlaylist = cd.RelatedPlaylists.Uploads
	}
	if bs := ch.BrandingSettings; bs != nil && bs.Channel != nil {
		out.Keywords = bs.Channel.Keywords
	}
	return out
}

func (c *Client) SearchChannelID(ctx context.Context, name string) (string, error) {
	var id string
	err := c.call(ctx, func() error {
		resp, err := c.service.Search.List([]string{"snippet"}).Q(name).Type("channel").MaxResults(1).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
			return fmt.Errorf("channel %q: %w", name, ErrNotFound)
		}
		id = resp.Items[0].Snippet.ChannelId
		return nil
	})
	return id, err
}

// ChannelVideos lists the most recent uploads of a channel.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, max int64) ([]VideoSummary, error) {
	ch, err := c.ChannelStats(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.UploadsPlaylist == "" {
		return nil, fmt.Errorf("uploads of %s: %w", channelID, ErrNotFound)
	}

	var out []VideoSummary
	err = c.call(ctx, func() error {
		resp, err := c.service.PlaylistItems.List([]string{"snippet"}).PlaylistId(ch.UploadsPlaylist).
			MaxResults(max).Context(ctx).Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.ResourceId == nil {
				continue
			}
			out = append(out, VideoSummary{
				ID:          item.Snippet.ResourceId.VideoId,
				Title:       item.Snippet.Title,
				PublishedAt: item.Snippet.PublishedAt,
			})
		}
		return nil
	})
	return out, err
}

// Comments returns top level comments. Videos with comments disabled yield
// an empty list.
func (c *Client) Comments(ctx context.Context, videoID string, max int64, order string) ([]Comment, error) {
	if order == "" {
		order = "relevance"
	}
	var out []Comment
	err := c.call(ctx, func() error {
		resp, err := c.service.CommentThreads.List([]string{"snippet"}).VideoId(videoID).MaxResults(max).
			Order(order).TextFormat("plainText").Context(ctx).Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			s := item.Snippet.TopLevelComment.Snippet
			author := s.AuthorDisplayName
			if author == "" {
				author = "Anonymous"
			}
			out = append(out, Comment{Author: author, Text: s.TextDisplay, Likes: s.LikeCount, PublishedAt: s.PublishedAt})
		}
		return nil
	})
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		logrus.WithField("video_id", videoID).Warn("Comments are disabled or not accessible")
		return []Comment{}, nil
	}
	return out, err
}

// VideoDetails gathers video, channel and comment metadata for analysis.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	var v *yt.Video
	err := c.call(ctx, func() error {
		resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).Id(videoID).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		v = resp.Items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if v.Snippet == nil {
		return nil, fmt.Errorf("video %s has no snippet: %w", videoID, ErrNotFound)
	}

	ch, err := c.ChannelStats(ctx, v.Snippet.ChannelId)
	if err != nil {
		return nil, err
	}

	comments, err := c.Comments(ctx, videoID, 10, "relevance")
	if err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Warn("Failed to fetch comments, continuing without them")
		comments = nil
	}
	top := make([]string, 0, len(comments))
	for _, cm := range comments {
		top = append(top, cm.Text)
	}

	d := &VideoDetails{
		VideoID:            videoID,
		Title:              v.Snippet.Title,
		Description:        v.Snippet.Description,
		Tags:               v.Snippet.Tags,
		ChannelID:          ch.ChannelID,
		ChannelName:        ch.Title,
		ChannelDescription: ch.Description,
		ChannelKeywords:    ch.Keywords,
		SubscriberCount:    ch.SubscriberCount,
		TopComments:        top,
		ThumbnailURL:       thumbnailURL(v.Snippet.Thumbnails),
		PublishedAt:        v.Snippet.PublishedAt,
	}
	if st := v.Statistics; st != nil {
		d.ViewCount = int64(st.ViewCount)
		d.LikeCount = int64(st.LikeCount)
		d.CommentCount = int64(st.CommentCount)
	}
	return d, nil
}

func thumbnailURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
