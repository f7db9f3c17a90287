// Package retry holds the backoff policies shared by the upstream clients.
package retry

import (
	"time"

	"github.com/cenkalti/backoff"
)

// Exponential starts at initial and allows n retries after the first
// attempt. backoff.WithMaxRetries reads a zero cap as unlimited, so n == 0
// yields a single attempt instead.
func Exponential(initial time.Duration, n uint64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	return Limit(b, n)
}

// Limit caps b at n retries, with zero meaning no retries.
func Limit(b backoff.BackOff, n uint64) backoff.BackOff {
	if n == 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(b, n)
}
