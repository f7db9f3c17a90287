package client

import (
	"errors"
	"time"
)

const (
	defaultTimeout             = time.Minute
	defaultMaxConnsPerHost     = 100
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 2 * time.Minute
	defaultUserAgent           = "kartr-client"
)

// Options configure a Client and its transport.
type Options struct {
	ignoreTLSCert bool
	// APIKey is sent as X-API-Key while there is no session token.
	APIKey string
	// Token is a session token from an earlier login.
	Token     string
	UserAgent string

	Timeout             time.Duration
	MaxConnsPerHost     int
	MaxIdleConnsPerHost int
	MaxIdleConns        int
	IdleConnTimeout     time.Duration
}

type Option func(*Options) error

// IgnoreTLSCert skips certificate verification, for self-signed test
// deployments.
func IgnoreTLSCert() Option {
	return func(o *Options) error {
		o.ignoreTLSCert = true
		return nil
	}
}

// APIKey authenticates machine clients on the job routes.
func APIKey(key string) Option {
	return func(o *Options) error {
		o.APIKey = key
		return nil
	}
}

// SessionToken reuses a token from an earlier Login instead of logging in again.
func SessionToken(token string) Option {
	return func(o *Options) error {
		o.Token = token
		return nil
	}
}

func UserAgent(ua string) Option {
	return func(o *Options) error {
		if ua == "" {
			return errors.New("user agent must not be empty")
		}
		o.UserAgent = ua
		return nil
	}
}

// Timeout bounds a single request, including reading the body.
func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		o.Timeout = timeout
		return nil
	}
}

// ConnectionPool sizes the transport pool: connections per host (in all
// states), idle connections per host and idle connections overall.
func ConnectionPool(perHost, idlePerHost, idle uint) Option {
	return func(o *Options) error {
		o.MaxConnsPerHost = int(perHost)
		o.MaxIdleConnsPerHost = int(idlePerHost)
		o.MaxIdleConns = int(idle)
		return nil
	}
}

// IdleConnTimeout is how long an idle pooled connection stays open.
func IdleConnTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.IdleConnTimeout = timeout
		return nil
	}
}

func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		UserAgent:           defaultUserAgent,
		Timeout:             defaultTimeout,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
