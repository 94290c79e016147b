// Package client provides the catalog API HTTP client with rate limiting,
// optional Redis response caching and error classification.
//
// Requests are single-attempt: a failed request is reported to the caller and
// never retried.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-viewer/pkg/cache"
	"github.com/Sternrassler/catalog-viewer/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PokéAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Prometheus metrics for catalog API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_api_requests_total",
		Help: "Total catalog API requests by resource and status",
	}, []string{"resource", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_api_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by resource",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_api_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// Client is the catalog API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *ratelimit.Limiter
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root; relative references resolve against it
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Timeout bounds a single HTTP exchange
	Timeout time.Duration

	// Redis enables the shared response cache; nil disables caching
	Redis *redis.Client

	// CacheMaxTTL caps how long a response is considered fresh; 0 means no cap
	CacheMaxTTL time.Duration

	// RateLimit configures the client-side request limiter
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		UserAgent:   userAgent,
		Timeout:     30 * time.Second,
		Redis:       redis,
		CacheMaxTTL: 24 * time.Hour,
		RateLimit:   ratelimit.DefaultConfig(),
	}
}

// New creates a new catalog API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		limiter: ratelimit.NewLimiter(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheMaxTTL)
	}

	return c, nil
}

// Do performs an HTTP request with rate limiting and caching. Responses with
// error statuses are returned as-is; only transport failures return an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resource := c.resource(req.URL)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.KeyFromURL(req.URL)
	var cachedEntry *cache.Entry
	if c.cache != nil && req.Method == http.MethodGet {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().
				Str("url", req.URL.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cache hit")
			apiRequestsTotal.WithLabelValues(resource, "cache").Inc()
			return cache.EntryToResponse(entry, req), nil
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Cache get error")
		}
	}

	// Step 2: Make Conditional Request if a stale entry can be revalidated
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("url", req.URL.String()).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Wait for the rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		apiRequestsTotal.WithLabelValues(resource, "rate_limited").Inc()
		return nil, &APIError{
			URL:        req.URL.String(),
			ErrorClass: ErrorClassNetwork,
			Message:    "rate limiter",
			Err:        err,
		}
	}

	// Step 4: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute HTTP Request
	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing catalog API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(resource, "network_error").Inc()
		c.logger.Warn().
			Err(err).
			Str("url", req.URL.String()).
			Str("error_class", string(ErrorClassNetwork)).
			Msg("HTTP request failed")
		return nil, &APIError{
			URL:        req.URL.String(),
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}

	c.limiter.UpdateFromResponse(resp)
	apiRequestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("url", req.URL.String()).Msg("304 Not Modified - using cache")

		refreshed, err := c.cache.Refresh(ctx, cacheKey, cache.ParseFreshness(resp.Header, time.Now()))
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			refreshed = cachedEntry
		}
		return cache.EntryToResponse(refreshed, req), nil
	}

	// Step 7: Classify errors
	if class := classifyStatus(resp.StatusCode); class != "" {
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Catalog API request error")
		return resp, nil
	}

	// Step 8: Update Cache on success
	if c.cache != nil && resp.StatusCode == http.StatusOK && req.Method == http.MethodGet {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("url", req.URL.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request. ref is either an absolute URL (as returned in
// API payloads) or a path relative to the base URL.
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON body into v.
// Any status other than 200 is returned as an *APIError.
func (c *Client) GetJSON(ctx context.Context, ref string, v any) error {
	resp, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		class := classifyStatus(resp.StatusCode)
		if class == "" {
			class = ErrorClassServer
		}
		return &APIError{
			URL:        resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			URL:        resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}

	return nil
}

// Resolve turns ref into an absolute URL string.
func (c *Client) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty request reference")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	resolved := *c.baseURL
	resolved.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(u.Path, "/")
	resolved.RawQuery = u.RawQuery
	return resolved.String(), nil
}

// BaseURL returns the API root the client resolves relative references against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Ping checks the cache backend. It is a no-op when caching is disabled.
func (c *Client) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// Close releases the Redis connection when caching is enabled.
func (c *Client) Close() error {
	if c.config.Redis != nil {
		return c.config.Redis.Close()
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// resource labels a request by the first path segment below the base URL
// ("pokemon", "type") to keep metric cardinality bounded.
func (c *Client) resource(u *url.URL) string {
	if u == nil {
		return "other"
	}

	path := u.Path
	if strings.EqualFold(u.Host, c.baseURL.Host) {
		path = strings.TrimPrefix(path, c.baseURL.Path)
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	segment, _, _ := strings.Cut(path, "/")
	return segment
}
