package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/auth"
	"github.com/kartr/kartr/internal/store"
	"github.com/kartr/kartr/internal/youtube"
)

const (
	recentSearchLimit = 10
	influencerLimit   = 50
	demoComments      = 100
)

type videoStatsResponse struct {
	Video   *youtube.VideoStats   `json:"video"`
	Channel *youtube.ChannelStats `json:"channel"`
}

type dashboardResponse struct {
	User           types.User      `json:"user"`
	Channels       []store.Channel `json:"channels,omitempty"`
	RecentSearches []store.Search  `json:"recent_searches"`
}

func (s *Server) youtubeAPI() (youtube.API, error) {
	if s.YouTube == nil {
		return nil, youtube.ErrNotConfigured
	}
	return s.YouTube, nil
}

func (s *Server) dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := s.Auth.User(ctx, userID(c))
	if err != nil {
		return err
	}
	out := dashboardResponse{User: auth.PublicUser(u, true)}
	if out.RecentSearches, err = s.Store.RecentSearches(ctx, u.ID, recentSearchLimit); err != nil {
		return err
	}
	if out.RecentSearches == nil {
		out.RecentSearches = []store.Search{}
	}
	if types.UserType(u.UserType) == types.Influencer {
		if out.Channels, err = s.Store.ChannelsByUser(ctx, u.ID); err != nil {
			return err
		}
		if out.Channels == nil {
			out.Channels = []store.Channel{}
		}
	}
	return c.JSON(http.StatusOK, out)
}

// youtubeStats returns video and channel statistics and links the channel to
// the caller.
func (s *Server) youtubeStats(c echo.Context) error {
	req := types.VideoURLRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	yt, err := s.youtubeAPI()
	if err != nil {
		return err
	}
	videoID, err := youtube.ExtractVideoID(req.YouTubeURL)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	video, err := yt.VideoStats(ctx, videoID)
	if err != nil {
		return err
	}
	channel, err := yt.ChannelStats(ctx, video.ChannelID)
	if err != nil {
		return err
	}

	s.recordSearch(ctx, userID(c), req.YouTubeURL, videoID, store.SearchStats)
	s.linkChannel(ctx, userID(c), channel)
	return c.JSON(http.StatusOK, videoStatsResponse{Video: video, Channel: channel})
}

// youtubeDemo returns the sponsor-facing insights of a video.
func (s *Server) youtubeDemo(c echo.Context) error {
	req := types.VideoURLRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	yt, err := s.youtubeAPI()
	if err != nil {
		return err
	}
	videoID, err := youtube.ExtractVideoID(req.YouTubeURL)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	video, err := yt.VideoStats(ctx, videoID)
	if err != nil {
		return err
	}
	channel, err := yt.ChannelStats(ctx, video.ChannelID)
	if err != nil {
		return err
	}
	comments, err := yt.Comments(ctx, videoID, demoComments, "relevance")
	if err != nil {
		// Comments can be disabled on a video; the insights still make sense
		// without them.
		logrus.WithError(err).WithField("video_id", videoID).Warn("Failed to fetch comments")
	}

	s.recordSearch(ctx, userID(c), req.YouTubeURL, videoID, store.SearchDemo)
	return c.JSON(http.StatusOK, youtube.BuildInsights(video, channel, comments))
}

func (s *Server) youtubeChannel(c echo.Context) error {
	req := types.ChannelURLRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	yt, err := s.youtubeAPI()
	if err != nil {
		return err
	}
	ref, err := youtube.ParseChannelURL(req.ChannelURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	channel, err := yt.ResolveChannel(ctx, ref)
	if err != nil {
		return err
	}
	s.recordSearch(ctx, userID(c), req.ChannelURL, "", store.SearchStats)
	s.linkChannel(ctx, userID(c), channel)
	return c.JSON(http.StatusOK, channel)
}

func (s *Server) channels(c echo.Context) error {
	out, err := s.Store.ChannelsByUser(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if out == nil {
		out = []store.Channel{}
	}
	return c.JSON(http.StatusOK, out)
}

// influencers searches registered influencers. Emails are only shown when
// their owner made them public.
func (s *Server) influencers(c echo.Context) error {
	users, err := s.Store.SearchInfluencers(c.Request().Context(), strings.TrimSpace(c.QueryParam("q")), influencerLimit)
	if err != nil {
		return err
	}
	self := userID(c)
	out := make([]types.User, 0, len(users))
	for i := range users {
		out = append(out, auth.PublicUser(&users[i], users[i].ID == self))
	}
	return c.JSON(http.StatusOK, out)
}

// recordSearch is best effort: a failed history write never fails the
// lookup itself.
func (s *Server) recordSearch(ctx context.Context, uid int64, query, videoID string, kind store.SearchKind) {
	if uid <= 0 {
		return
	}
	if err := s.Store.AddSearch(ctx, uid, query, videoID, kind); err != nil {
		logrus.WithError(err).WithField("user_id", uid).Warn("Failed to record search")
	}
}

func (s *Server) linkChannel(ctx context.Context, uid int64, ch *youtube.ChannelStats) {
	if uid <= 0 || ch == nil {
		return
	}
	rec := &store.Channel{
		UserID:          uid,
		ChannelID:       ch.ChannelID,
		Title:           ch.Title,
		SubscriberCount: ch.SubscriberCount,
		VideoCount:      ch.VideoCount,
		ViewCount:       ch.ViewCount,
	}
	if err := s.Store.UpsertChannel(ctx, rec); err != nil {
		logrus.WithError(err).WithField("channel_id", ch.ChannelID).Warn("Failed to save channel")
	}
}
