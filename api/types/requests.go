package types

type VideoURLRequest struct {
	YouTubeURL string `json:"youtube_url" validate:"required"`
}

type ChannelURLRequest struct {
	ChannelURL string `json:"channel_url" validate:"required"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// ChannelAnalysisArguments are the arguments of a channel-analysis job.
type ChannelAnalysisArguments struct {
	Channel   string `json:"channel" validate:"required"`
	MaxVideos int    `json:"max_videos"`
}

// VideoAnalysisArguments are the arguments of video-analysis and
// transcript-analysis jobs.
type VideoAnalysisArguments struct {
	YouTubeURL string `json:"youtube_url" validate:"required"`
}

// ImageGenerationArguments are the arguments of an image-generation job.
type ImageGenerationArguments struct {
	Prompt    string `json:"prompt" validate:"required"`
	BrandName string `json:"brand_name,omitempty"`
}

type ImageRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
}

type BlueskyPostRequest struct {
	Filename string `json:"filename" validate:"required"`
	Caption  string `json:"caption" validate:"max=300"`
}

type SchedulePostRequest struct {
	Platform      string `json:"platform" validate:"required,oneof=instagram youtube bluesky"`
	ContentType   string `json:"content_type" validate:"required,oneof=video image"`
	MediaPath     string `json:"media_path" validate:"required"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Title         string `json:"title,omitempty"`
	Caption       string `json:"caption"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
}

type RentalRequest struct {
	InfluencerID        string `json:"influencer_id" validate:"required"`
	StartDate           string `json:"start_date" validate:"required,datetime=2006-01-02"`
	DurationDays        int    `json:"duration_days" validate:"required,min=1,max=365"`
	CampaignName        string `json:"campaign_name" validate:"required"`
	CampaignDescription string `json:"campaign_description"`
}

type SubscriptionRequest struct {
	AgentID        string            `json:"agent_id" validate:"required"`
	Months         int               `json:"months" validate:"required,min=1,max=36"`
	Platforms      []string          `json:"platforms" validate:"required,min=1"`
	AccountDetails map[string]string `json:"account_details"`
}

type APIError struct {
	Error string `json:"error"`
}
