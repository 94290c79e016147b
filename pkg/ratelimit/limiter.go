// Package ratelimit gates outgoing catalog API requests.
//
// PokéAPI publishes no rate-limit headers but asks clients to be fair, so the
// limiter is client-side: a token bucket (golang.org/x/time/rate) shared by
// every request the client makes, plus a pause window honoured after the API
// answers 429 Too Many Requests with Retry-After.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a catalog API request token",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	rateLimitRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_rejections_total",
		Help: "Total number of request token waits aborted by context cancellation",
	})
)

// Config holds limiter settings.
type Config struct {
	// RequestsPerSecond is the sustained request rate; <= 0 disables limiting
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once
	Burst int
}

// DefaultConfig returns a polite default for a public API.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		Burst:             10,
	}
}

// State is a point-in-time view of the limiter.
type State struct {
	Limit       rate.Limit
	Burst       int
	PausedUntil time.Time
}

// Paused returns true if requests are held back by a server-requested pause.
func (s State) Paused() bool {
	return time.Now().Before(s.PausedUntil)
}

// Limiter gates requests with a token bucket and an optional pause window.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewLimiter creates a limiter from cfg.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()

	if until := l.pauseDeadline(); !until.IsZero() {
		l.logger.Debug().Time("paused_until", until).Msg("Waiting for API pause to end")
		timer := time.NewTimer(time.Until(until))
		select {
		case <-ctx.Done():
			timer.Stop()
			rateLimitRejectionsTotal.Inc()
			return fmt.Errorf("wait for api pause: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		rateLimitRejectionsTotal.Inc()
		return fmt.Errorf("wait for request token: %w", err)
	}

	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Pause holds back every request until the given time.
func (l *Limiter) Pause(until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if until.After(l.pausedUntil) {
		l.pausedUntil = until
		l.logger.Warn().Time("paused_until", until).Msg("Catalog API asked us to slow down")
	}
}

// UpdateFromResponse pauses the limiter when the API answered 429 with a
// Retry-After header. The request itself is not retried.
func (l *Limiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	if d, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
		l.Pause(time.Now().Add(d))
	}
}

// State returns a snapshot of the limiter.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return State{
		Limit:       l.limiter.Limit(),
		Burst:       l.limiter.Burst(),
		PausedUntil: l.pausedUntil,
	}
}

func (l *Limiter) pauseDeadline() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().Before(l.pausedUntil) {
		return l.pausedUntil
	}
	return time.Time{}
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
