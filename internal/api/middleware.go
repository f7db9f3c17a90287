package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/kartr/kartr/internal/auth"
)

const (
	HealthCheckPath    = "/healthz"
	ReadinessCheckPath = "/readyz"
	MetricsPath        = "/metrics"

	SessionCookie = "kartr_session"

	claimsKey  = "claims"
	machineKey = "machine"

	defaultLoginRate = 5
	loginWindow      = time.Minute
)

func isProbe(c echo.Context) bool {
	switch c.Request().URL.Path {
	case HealthCheckPath, ReadinessCheckPath, MetricsPath:
		return true
	}
	return false
}

// sessionToken reads the token from the session cookie or a bearer header.
func sessionToken(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// RequireSession rejects requests without a valid session token.
func RequireSession(sessions *auth.SessionManager) echo.MiddlewareFunc {
	return RequireSessionOrAPIKey(sessions, "")
}

// RequireSessionOrAPIKey also lets machine clients in with the API key
// (X-API-Key, or as the bearer token). An empty apiKey disables that path.
func RequireSessionOrAPIKey(sessions *auth.SessionManager, apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey != "" {
				key := c.Request().Header.Get("X-API-Key")
				if key == "" {
					key = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
				}
				if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
					c.Set(machineKey, true)
					return next(c)
				}
			}

			token := sessionToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "login required")
			}
			claims, err := sessions.Validate(token)
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// currentUser returns the claims of the logged-in user, or nil for machine
// clients.
func currentUser(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

// userID is 0 for machine clients.
func userID(c echo.Context) int64 {
	if u := currentUser(c); u != nil {
		return u.UserID
	}
	return 0
}

// RateLimit allows a burst of requests per client IP.
func RateLimit(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
			}
			return next(c)
		}
	}
}

// RateLimiter keeps one token bucket per IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiterEntry
	rate     rate.Limit
	burst    int
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter refills the bucket at reqsPerWindow per window.
func NewRateLimiter(reqsPerWindow int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
		rate:     rate.Every(window / time.Duration(reqsPerWindow)),
		burst:    reqsPerWindow,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *RateLimiter) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-time.Hour))
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) cleanup(threshold time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, ip)
		}
	}
}

// HealthMetricsMiddleware tracks success and error rates for readiness probe
func HealthMetricsMiddleware(healthMetrics *HealthMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip metrics for probe endpoints to avoid self-influence
			if isProbe(c) {
				return next(c)
			}

			err := next(c)
			if err != nil {
				// The error handler has not run yet, so the status comes
				// from the error itself.
				if errorStatus(err) >= 500 {
					healthMetrics.RecordError()
				}
				return err
			}

			// 4xx errors are not counted as they indicate client errors
			statusCode := c.Response().Status
			if statusCode >= 500 {
				healthMetrics.RecordError()
			} else if statusCode >= 200 && statusCode < 400 {
				healthMetrics.RecordSuccess()
			}
			return nil
		}
	}
}
