package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/jobs/stats"
	"github.com/kartr/kartr/internal/media"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
)

var (
	ErrInvalidPlatform    = errors.New("platform must be one of instagram, youtube, bluesky")
	ErrInvalidContentType = errors.New("content_type must be video or image")
	ErrInvalidTime        = errors.New("scheduled_time must be HH:MM")
	ErrMediaNotFound      = errors.New("media file not found")
)

const claimBatch = 10

var platforms = map[string]struct{}{
	social.PlatformInstagram: {},
	social.PlatformYouTube:   {},
	social.PlatformBluesky:   {},
}

type Store interface {
	AddPost(ctx context.Context, p *store.ScheduledPost) error
	ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]store.ScheduledPost, error)
	UpdatePostStatus(ctx context.Context, postID string, status store.PostStatus, result string) error
	FailStalePosts(ctx context.Context, cutoff time.Time) (int64, error)
	ListPosts(ctx context.Context, userID int64) ([]store.ScheduledPost, error)
	PurgeExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// Publisher is satisfied by social.Posters.
type Publisher interface {
	Post(ctx context.Context, platform string, req social.PostRequest) (*social.PostResult, error)
}

// Scheduler keeps due posts in the database and publishes them from a
// single polling loop.
type Scheduler struct {
	store     Store
	publisher Publisher
	stats     *stats.StatsCollector
	cfg       config.SchedulerConfig
	now       func() time.Time
}

func New(cfg config.SchedulerConfig, st Store, publisher Publisher, collector *stats.StatsCollector) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DefaultPostTime == "" {
		cfg.DefaultPostTime = config.DefaultPostTime
	}
	return &Scheduler{store: st, publisher: publisher, stats: collector, cfg: cfg, now: time.Now}
}

func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Schedule validates req and queues it for the next occurrence of its time
// of day.
func (s *Scheduler) Schedule(ctx context.Context, userID int64, req types.SchedulePostRequest) (*store.ScheduledPost, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if _, ok := platforms[platform]; !ok {
		return nil, ErrInvalidPlatform
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType != social.ContentImage && contentType != social.ContentVideo {
		return nil, ErrInvalidContentType
	}

	mediaPath, err := media.Resolve(s.cfg.DataDir, req.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, req.MediaPath)
	}
	if (contentType == social.ContentImage && !media.IsImage(mediaPath)) ||
		(contentType == social.ContentVideo && !media.IsVideo(mediaPath)) {
		return nil, fmt.Errorf("%w: %s is not a %s file", ErrInvalidContentType, req.MediaPath, contentType)
	}
	var thumb string
	if req.ThumbnailPath != "" {
		if thumb, err = media.Resolve(s.cfg.DataDir, req.ThumbnailPath); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, req.ThumbnailPath)
		}
	}

	at := req.ScheduledTime
	if at == "" {
		at = s.cfg.DefaultPostTime
	}
	due, err := NextOccurrence(at, s.now())
	if err != nil {
		return nil, err
	}

	post := &store.ScheduledPost{
		PostID:        uuid.New().String(),
		UserID:        userID,
		Platform:      platform,
		ContentType:   contentType,
		MediaPath:     mediaPath,
		ThumbnailPath: thumb,
		Title:         req.Title,
		Caption:       req.Caption,
		ScheduledTime: at,
		DueAt:         due,
		Status:        store.PostPending,
	}
	if err := s.store.AddPost(ctx, post); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"post_id": post.PostID, "platform": platform, "due_at": due}).Info("Scheduled post")
	return post, nil
}

func (s *Scheduler) List(ctx context.Context, userID int64) ([]store.ScheduledPost, error) {
	return s.store.ListPosts(ctx, userID)
}

// NextOccurrence returns the first time at or after now whose wall clock
// reads hhmm in now's location.
func NextOccurrence(hhmm string, now time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if due.Before(now) {
		due = due.AddDate(0, 0, 1)
	}
	return due, nil
}

// Run ticks once immediately and then every interval until ctx is done.
// Posts left in processing by a previous run are failed first.
func (s *Scheduler) Run(ctx context.Context) {
	if n, err := s.store.FailStalePosts(ctx, s.now()); err != nil {
		logrus.WithError(err).Error("Failed to clean up interrupted posts")
	} else if n > 0 {
		logrus.Warnf("Marked %d interrupted posts as failed", n)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	logrus.WithField("interval", s.cfg.Interval).Info("Post scheduler started")
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			logrus.Info("Post scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick publishes every due post and evicts expired OTPs. It returns the
// number of posts processed.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()
	if n, err := s.store.PurgeExpiredOTPs(ctx, now); err != nil {
		logrus.WithError(err).Warn("Failed to purge expired OTPs")
	} else if n > 0 {
		logrus.Debugf("Purged %d expired OTPs", n)
	}

	processed := 0
	for ctx.Err() == nil {
		posts, err := s.store.ClaimDuePosts(ctx, now, claimBatch)
		if err != nil {
			logrus.WithError(err).Error("Failed to claim due posts")
			return processed
		}
		for _, p := range posts {
			s.publish(ctx, p)
			processed++
		}
		if len(posts) < claimBatch {
			break
		}
	}
	return processed
}

func (s *Scheduler) publish(ctx context.Context, p store.ScheduledPost) {
	log := logrus.WithFields(logrus.Fields{"post_id": p.PostID, "platform": p.Platform, "user_id": p.UserID})
	source := fmt.Sprintf("user:%d", p.UserID)

	res, err := s.publisher.Post(ctx, p.Platform, social.PostRequest{
		ContentType:   p.ContentType,
		MediaPath:     p.MediaPath,
		ThumbnailPath: p.ThumbnailPath,
		Title:         p.Title,
		Caption:       p.Caption,
	})
	status, result := store.PostCompleted, ""
	if err != nil {
		status, result = store.PostFailed, err.Error()
		log.WithError(err).Error("Scheduled post failed")
		s.stats.Add(source, stats.PostErrors, 1)
	} else {
		result = res.ID
		if res.URL != "" {
			result = res.URL
		}
		log.WithField("result", result).Info("Scheduled post published")
		s.stats.Add(source, stats.PostsPublished, 1)
	}
	// The post was already claimed, so record the outcome even if ctx is done.
	if err := s.store.UpdatePostStatus(context.WithoutCancel(ctx), p.PostID, status, result); err != nil {
		log.WithError(err).Error("Failed to update post status")
	}
}
