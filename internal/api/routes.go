package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
)

// Store is the part of the database the handlers use directly.
type Store interface {
	UpsertChannel(ctx context.Context, c *store.Channel) error
	ChannelsByUser(ctx context.Context, userID int64) ([]store.Channel, error)
	AddSearch(ctx context.Context, userID int64, query, videoID string, kind store.SearchKind) error
	RecentSearches(ctx context.Context, userID int64, limit int) ([]store.Search, error)
	SearchInfluencers(ctx context.Context, query string, limit int) ([]store.User, error)
	Ping(ctx context.Context) error
}

// ImageGenerator is implemented by imagegen.Client.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Result, error)
	Promotional(ctx context.Context, userID int64, face, brand []byte, prompt, brandName string) (*imagegen.Result, error)
}

// Publisher is implemented by social.Posters.
type Publisher interface {
	Post(ctx context.Context, platform string, req social.PostRequest) (*social.PostResult, error)
}

func (s *Server) routes() {
	e := s.e
	sessions := s.Auth.Sessions()

	e.GET(HealthCheckPath, Healthz())
	e.GET(ReadinessCheckPath, s.Readyz())
	e.GET(MetricsPath, s.metricsHandler())
	e.GET("/media/:name", s.serveMedia)
	e.GET("/capabilities", s.capabilities)

	limited := RateLimit(s.limiter)
	a := e.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login, limited)
	a.POST("/otp/request", s.requestOTP, limited)
	a.POST("/otp/verify", s.verifyOTP, limited)
	a.POST("/logout", s.logout)

	// Jobs are also open to machine clients holding the API key.
	j := e.Group("/jobs", RequireSessionOrAPIKey(sessions, s.APIKey))
	j.POST("", s.addJob)
	j.GET("/:id", s.jobStatus)

	if s.Profiling {
		registerProfiling(e, RequireSessionOrAPIKey(sessions, s.APIKey))
		debug := e.Group("/debug/pprof")
		debug.POST("/enable", func(c echo.Context) error {
			enableProfiling(e)
			return c.String(http.StatusOK, "pprof enabled")
		})
		debug.POST("/disable", func(c echo.Context) error {
			disableProfiling(e)
			return c.String(http.StatusOK, "pprof disabled")
		})
	}

	g := e.Group("", RequireSession(sessions))

	g.GET("/me", s.me)
	g.POST("/me/password", s.changePassword)
	g.POST("/me/email-visibility", s.emailVisibility)
	g.GET("/dashboard", s.dashboard)

	g.POST("/youtube/stats", s.youtubeStats)
	g.POST("/youtube/demo", s.youtubeDemo)
	g.POST("/youtube/channel", s.youtubeChannel)
	g.GET("/channels", s.channels)
	g.GET("/influencers", s.influencers)

	g.POST("/analysis/video", s.analyzeVideo)
	g.POST("/analysis/transcript", s.analyzeTranscript)
	g.POST("/analysis/ask", s.ask)
	g.GET("/analysis", s.listAnalyses)
	g.GET("/analysis/export", s.exportAnalyses)
	g.POST("/analysis/import", s.importAnalyses)
	g.GET("/graph", s.graphJSON)
	g.GET("/graph/dot", s.graphDOT)

	g.POST("/images/generate", s.generateImage)
	g.POST("/images/promotional", s.promotionalImage)
	g.GET("/images", s.listImages)
	g.POST("/social/bluesky", s.postBluesky)
	g.POST("/posts", s.schedulePost)
	g.GET("/posts", s.listPosts)

	m := g.Group("/marketplace")
	m.GET("/influencers", s.listVirtualInfluencers)
	m.GET("/influencers/:id", s.virtualInfluencer)
	m.POST("/rentals", s.rent)
	m.GET("/rentals", s.rentals)
	m.GET("/rentals/:id/metrics", s.campaignMetrics)
	m.GET("/agents", s.listAgents)
	m.GET("/agents/:id", s.agent)
	m.POST("/subscriptions", s.subscribe)
	m.GET("/subscriptions", s.subscriptions)
	m.GET("/subscriptions/:id/report", s.performanceReport)
}

func (s *Server) capabilities(c echo.Context) error {
	caps := s.Capabilities
	if caps == nil {
		caps = types.WorkerCapabilities{}
	}
	return c.JSON(http.StatusOK, caps)
}

// addJob queues a job for the caller. The response contains the UUID to poll.
func (s *Server) addJob(c echo.Context) error {
	job := types.Job{}
	if err := bind(c, &job); err != nil {
		return err
	}
	job.UserID = userID(c)

	uuid, err := s.Jobs.AddJob(job)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"job": uuid, "type": job.Type, "user_id": job.UserID}).Info("Job queued")
	return c.JSON(http.StatusAccepted, types.JobResponse{UID: uuid})
}

// jobStatus returns the job result, or a pending status while it runs.
// Callers only see their own jobs.
func (s *Server) jobStatus(c echo.Context) error {
	res, exists := s.Jobs.GetJobResult(c.Param("id"))
	if !exists || res.Job.UserID != userID(c) {
		return echo.NewHTTPError(http.StatusNotFound, "Job not found")
	}
	return c.JSON(http.StatusOK, res)
}
