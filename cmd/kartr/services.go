package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/kartr/kartr/internal/analysis"
	"github.com/kartr/kartr/internal/api"
	"github.com/kartr/kartr/internal/auth"
	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/jobs/stats"
	"github.com/kartr/kartr/internal/jobserver"
	"github.com/kartr/kartr/internal/marketplace"
	"github.com/kartr/kartr/internal/scheduler"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
	"github.com/kartr/kartr/internal/youtube"
)

// buildServices wires every component. Upstreams without credentials are
// left out and the routes that need them answer 503.
func buildServices(ctx context.Context, cfg config.Configuration, st *store.Store, tracker *health.Tracker, collector *stats.StatsCollector) (api.Deps, error) {
	authCfg := cfg.GetAuthConfig()
	sessions, err := auth.NewSessionManager(authCfg.SessionSecret, authCfg.SessionTimeout)
	if err != nil {
		return api.Deps{}, err
	}
	otp := auth.NewOTPService(st, auth.NewMailer(cfg.GetMailConfig()), authCfg.OTPTTL, authCfg.OTPLength)
	authSvc := auth.NewService(st, sessions, otp, bcrypt.DefaultCost)

	// Interfaces stay nil, not typed nil, when an upstream is missing.
	var yt youtube.API
	switch client, err := youtube.NewClient(ctx, cfg.GetYouTubeConfig().APIKey, tracker); {
	case errors.Is(err, youtube.ErrNotConfigured):
		logrus.Warn("YOUTUBE_API_KEY is not set, YouTube features are disabled")
	case err != nil:
		return api.Deps{}, err
	default:
		yt = client
	}

	var ai analysis.ContentAnalyzer
	switch gen, err := gemini.NewGenAIGenerator(ctx, cfg.GetGeminiConfig(), tracker, ""); {
	case errors.Is(err, gemini.ErrNotConfigured):
		logrus.Warn("GEMINI_API_KEY is not set, content analysis is disabled")
	case err != nil:
		return api.Deps{}, err
	default:
		ai = gemini.NewAnalyzer(gen)
	}
	analysisSvc := analysis.NewService(yt, youtube.NewTranscriptFetcher(), ai, st)

	var images api.ImageGenerator
	var jobImages jobs.ImageGenerator
	if ig := imagegen.NewClient(cfg.GetImageGenConfig(), st, tracker); ig.Configured() {
		images, jobImages = ig, ig
	} else {
		logrus.Warn("IMAGEGEN_URL is not set, image generation is disabled")
	}

	posters, err := buildPosters(ctx, cfg.GetSocialConfig(), tracker)
	if err != nil {
		return api.Deps{}, err
	}

	js := jobserver.NewJobServer(cfg.GetJobServerConfig(), jobs.Deps{
		Analysis: analysisSvc,
		Images:   jobImages,
		Stats:    collector,
	})

	return api.Deps{
		Auth:        authSvc,
		Store:       st,
		YouTube:     yt,
		Analysis:    analysisSvc,
		Images:      images,
		Publisher:   posters,
		Scheduler:   scheduler.New(cfg.GetSchedulerConfig(), st, posters, collector),
		Marketplace: marketplace.NewService(st),
		Jobs:        js,
		Health:      tracker,
		DataDir:     cfg.DataDir(),
		APIKey:      authCfg.APIKey,
		LogLevel:    cfg.GetString("log_level", "info"),
		Profiling:   cfg.GetBool("profiling_enabled", false),
	}, nil
}

func buildPosters(ctx context.Context, cfg config.SocialConfig, tracker *health.Tracker) (social.Posters, error) {
	posters := social.Posters{}
	if b := social.NewBluesky(cfg, tracker); b.Configured() {
		posters[social.PlatformBluesky] = b
	}
	if ig := social.NewInstagram(cfg, tracker); ig.Configured() {
		posters[social.PlatformInstagram] = ig
	}
	switch up, err := social.NewYouTubeUploader(ctx, cfg, tracker); {
	case errors.Is(err, social.ErrNotConfigured):
	case err != nil:
		return nil, fmt.Errorf("youtube uploader: %w", err)
	default:
		posters[social.PlatformYouTube] = up
	}
	logrus.WithField("platforms", len(posters)).Info("Social posting configured")
	return posters, nil
}
