package capabilities

import (
	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/social"
)

// Publishing is the pseudo job type listing the platforms posts can go to.
const Publishing = "publishing"

var (
	telemetryCaps  = []types.Capability{"telemetry"}
	videoCaps      = []types.Capability{"creator", "sponsors"}
	transcriptCaps = []types.Capability{"transcript", "sponsors"}
	channelCaps    = []types.Capability{"common-sponsors"}
	imageCaps      = []types.Capability{"generate", "enhance-prompt"}
)

// DetectCapabilities reports the job types this configuration can run.
// Analysis needs both the YouTube and the Gemini key.
func DetectCapabilities(cfg config.Configuration) types.WorkerCapabilities {
	caps := types.WorkerCapabilities{{JobType: jobs.TelemetryJobType, Capabilities: telemetryCaps}}

	if cfg.GetYouTubeConfig().APIKey != "" && cfg.GetGeminiConfig().APIKey != "" {
		caps = append(caps,
			types.JobCapability{JobType: jobs.VideoAnalysisType, Capabilities: videoCaps},
			types.JobCapability{JobType: jobs.TranscriptAnalysisType, Capabilities: transcriptCaps},
			types.JobCapability{JobType: jobs.ChannelAnalysisType, Capabilities: channelCaps},
		)
	}
	if cfg.GetImageGenConfig().URL != "" {
		caps = append(caps, types.JobCapability{JobType: jobs.ImageGenerationType, Capabilities: imageCaps})
	}

	if platforms := publishingPlatforms(cfg.GetSocialConfig()); len(platforms) > 0 {
		caps = append(caps, types.JobCapability{JobType: Publishing, Capabilities: platforms})
	}
	return caps
}

func publishingPlatforms(sc config.SocialConfig) []types.Capability {
	var out []types.Capability
	if sc.BlueskyHandle != "" && sc.BlueskyAppPassword != "" {
		out = append(out, social.PlatformBluesky)
	}
	// Instagram pulls media by URL, so it also needs a public media base.
	if sc.InstagramUserID != "" && sc.InstagramAccessToken != "" && sc.MediaBaseURL != "" {
		out = append(out, social.PlatformInstagram)
	}
	if sc.YouTubeClientSecrets != "" {
		out = append(out, social.PlatformYouTube)
	}
	return out
}
