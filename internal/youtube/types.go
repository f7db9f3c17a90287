package youtube

import "errors"

var (
	ErrInvalidURL    = errors.New("invalid YouTube URL or video ID")
	ErrNotFound      = errors.New("not found on YouTube")
	ErrNoTranscript  = errors.New("no transcript available for this video")
	ErrNotConfigured = errors.New("YouTube API key is not configured")
)

type VideoStats struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	PublishDate  string `json:"publish_date"`
	Description  string `json:"description"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	Duration     string `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type ChannelStats struct {
	ChannelID       string `json:"channel_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	ViewCount       int64  `json:"view_count"`
	Country         string `json:"country"`
	ThumbnailURL    string `json:"thumbnail_url"`
	CreatedAt       string `json:"created_at"`
	Keywords        string `json:"keywords,omitempty"`
	UploadsPlaylist string `json:"-"`
}

type Comment struct {
	Author      string `json:"author"`
	Text        string `json:"text"`
	Likes       int64  `json:"likes"`
	PublishedAt string `json:"published_at"`
}

type VideoSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}

// VideoDetails is the metadata bundle handed to content analysis.
type VideoDetails struct {
	VideoID            string   `json:"video_id"`
	Title              string   `json:"video_title"`
	Description        string   `json:"video_description"`
	Tags               []string `json:"video_tags"`
	ViewCount          int64    `json:"view_count"`
	LikeCount          int64    `json:"like_count"`
	CommentCount       int64    `json:"comment_count"`
	ChannelID          string   `json:"channel_id"`
	ChannelName        string   `json:"channel_name"`
	ChannelDescription string   `json:"channel_description"`
	ChannelKeywords    string   `json:"channel_keywords"`
	SubscriberCount    int64    `json:"subscriber_count"`
	TopComments        []string `json:"top_comments"`
	ThumbnailURL       string   `json:"thumbnail_url"`
	PublishedAt        string   `json:"published_at"`
}
