package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/analysis"
	"github.com/kartr/kartr/internal/auth"
	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/jobserver"
	"github.com/kartr/kartr/internal/marketplace"
	"github.com/kartr/kartr/internal/scheduler"
	"github.com/kartr/kartr/internal/youtube"
)

const bodyLimit = "25M"

// Deps are the services behind the HTTP surface. YouTube, Images and
// Publisher may be nil when their credentials are missing.
type Deps struct {
	Auth        *auth.Service
	Store       Store
	YouTube     youtube.API
	Analysis    *analysis.Service
	Images      ImageGenerator
	Publisher   Publisher
	Scheduler   *scheduler.Scheduler
	Marketplace *marketplace.Service
	Jobs        *jobserver.JobServer
	Health      *health.Tracker
	Registry    *prometheus.Registry

	// Capabilities are reported on /capabilities.
	Capabilities types.WorkerCapabilities

	DataDir   string
	APIKey    string
	LogLevel  string
	Profiling bool
	// LoginRate is the number of login and OTP requests allowed per IP and
	// minute. Zero uses the default.
	LoginRate int
}

type Server struct {
	Deps
	e       *echo.Echo
	metrics *HealthMetrics
	limiter *RateLimiter
}

func NewServer(d Deps) *Server {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.LoginRate <= 0 {
		d.LoginRate = defaultLoginRate
	}

	e := echo.New()
	e.HideBanner = true
	// Rate limits key on the peer address; forwarded headers are client-controlled.
	e.IPExtractor = echo.ExtractIPDirect()
	e.Logger.SetLevel(echoLogLevel(d.LogLevel))
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		Deps:    d,
		e:       e,
		metrics: NewHealthMetrics(),
		limiter: NewRateLimiter(d.LoginRate, loginWindow),
	}

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "kartr",
		Registerer: d.Registry,
		Skipper:    isProbe,
	}))
	e.Use(HealthMetricsMiddleware(s.metrics))

	s.routes()

	if d.Profiling {
		enableProfiling(e)
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, listenAddress string) error {
	go s.limiter.startCleanup(ctx)

	go func() {
		<-ctx.Done()
		if err := s.e.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close Echo server")
		}
	}()

	logrus.Infof("Starting server on %s", listenAddress)
	if err := s.e.Start(listenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry}))
}

func echoLogLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

// registerProfiling mounts the pprof endpoints behind guard. pprof.Register
// takes no middleware, so the guard matches on the path prefix instead.
func registerProfiling(e *echo.Echo, guard echo.MiddlewareFunc) {
	e.Use(guardPrefix(pprof.DefaultPrefix, guard))
	pprof.Register(e)
}

func guardPrefix(prefix string, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, prefix) {
				return guarded(c)
			}
			return next(c)
		}
	}
}

// enableProfiling turns on block and mutex sampling.
func enableProfiling(e *echo.Echo) {
	e.Logger.Info("Enabling profiling - this may impact performance")

	// Sample time in nanoseconds, see https://github.com/DataDog/go-profiler-notes/blob/main/block.md#usage
	runtime.SetBlockProfileRate(500)
	runtime.SetMutexProfileFraction(1)
}

// disableProfiling stops the expensive sampling. The endpoints stay
// registered.
func disableProfiling(e *echo.Echo) {
	e.Logger.Info("Disabling performance-intensive profiling probes")

	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
