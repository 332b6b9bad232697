// Package sentry fetches error events for a customer around a reported
// timestamp, narrates them into a bounded text block for analysis, and
// caches responses to stay under the API rate limit.
package sentry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/retry"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the Sentry instance, default https://sentry.io
	BaseURL string
	// Org and Project select the event source
	Org     string
	Project string
	// AuthToken is the bearer token for the Sentry API
	AuthToken string
	// Timeout bounds a single request, default 30s
	Timeout time.Duration
	// CacheSize bounds the response cache, default 100 entries
	CacheSize int
}

// Client queries the Sentry events API with caching, transport-level
// retry, and single-flight de-duplication of concurrent identical
// fetches.
type Client struct {
	baseURL    string
	org        string
	project    string
	authToken  string
	httpClient *http.Client
	cache      *eventCache
	group      singleflight.Group
	retryCfg   retry.Config
	metrics    *Metrics
	logger     *logging.Logger
}

// NewClient creates a Sentry client with tuned connection pooling.
func NewClient(cfg ClientConfig, reg prometheus.Registerer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sentry.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10, // default 2 causes connection churn
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		org:       cfg.Org,
		project:   cfg.Project,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cache: newEventCache(cfg.CacheSize),
		retryCfg: retry.Config{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     10 * time.Second,
		},
		metrics: NewMetrics(reg),
		logger:  logging.GetLogger("sentry.client"),
	}
}

// BaseURL returns the normalized Sentry instance URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) eventsURL() string {
	return fmt.Sprintf("%s/api/0/projects/%s/%s/events/", c.baseURL, c.org, c.project)
}

// FetchEvents returns the raw events recorded for the customer within
// ±windowMinutes of the timestamp. Identical queries are answered from
// the cache without any upstream call; concurrent identical misses
// share a single upstream call.
//
// Auth, rate-limit, not-found and server failures are classified as
// *Error and never retried; only transport failures are retried.
func (c *Client) FetchEvents(ctx context.Context, customerID, timestamp string, windowMinutes int) ([]Event, error) {
	window, err := NewTimeWindow(timestamp, windowMinutes)
	if err != nil {
		return nil, err
	}

	endpoint := c.eventsURL()
	key := cacheKey(endpoint, customerID, timestamp, windowMinutes)

	if events, ok := c.cache.Get(key); ok {
		c.metrics.CacheHits.Inc()
		c.logger.Info("Using cached Sentry events for key %s...", key[:16])
		return events, nil
	}

	c.logger.Info("Fetching Sentry events for customer %s from %s to %s",
		customerID, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the cache while this
		// call waited on the flight lock.
		if events, ok := c.cache.Get(key); ok {
			return events, nil
		}
		c.metrics.CacheMisses.Inc()

		events, err := c.fetchUpstream(ctx, endpoint, customerID, window)
		if err != nil {
			return nil, err
		}

		c.cache.Add(key, events)
		c.logger.Info("Cached Sentry events with key %s...", key[:16])
		return events, nil
	})
	if err != nil {
		var clientErr *Error
		if !errors.As(err, &clientErr) {
			err = NewUpstreamError(fmt.Sprintf("Failed to fetch Sentry events: %v", err))
		}
		return nil, err
	}

	events := v.([]Event)
	c.logger.Info("Found %d Sentry events for customer %s", len(events), customerID)
	return events, nil
}

// fetchUpstream issues the API request, retrying transport failures
// with exponential backoff. Classified API errors pass through
// unretried.
func (c *Client) fetchUpstream(ctx context.Context, endpoint, customerID string, window TimeWindow) ([]Event, error) {
	cfg := c.retryCfg
	cfg.Retryable = isTransportError
	cfg.OnRetry = func(attempt int, backoff time.Duration, err error) {
		c.logger.Warn("Sentry API request failed (attempt %d/%d), retrying in %v: %v",
			attempt, cfg.MaxAttempts, backoff, err)
	}

	var events []Event
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		var reqErr error
		events, reqErr = c.doRequest(ctx, endpoint, customerID, window)
		return reqErr
	})
	return events, err
}

// isTransportError reports whether the failure happened before a
// response could be classified. Classified API errors are definitive
// and must not be retried.
func isTransportError(err error) bool {
	var clientErr *Error
	return !errors.As(err, &clientErr)
}

func (c *Client) doRequest(ctx context.Context, endpoint, customerID string, window TimeWindow) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewUpstreamError(fmt.Sprintf("Failed to fetch Sentry events: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	q := url.Values{}
	q.Set("query", "user.id:"+customerID)
	q.Set("start", window.Start.Format(time.RFC3339))
	q.Set("end", window.End.Format(time.RFC3339))
	q.Set("full", "true")
	req.URL.RawQuery = q.Encode()

	c.metrics.RequestsTotal.Inc()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ErrorsTotal.Inc()
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// Always read the body to completion for connection reuse.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ErrorsTotal.Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if err := c.classifyStatus(resp); err != nil {
		c.metrics.ErrorsTotal.Inc()
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		if json.Valid(body) {
			// A 2xx answer that is not an event list carries no
			// events worth narrating.
			c.logger.Warn("Sentry returned a non-list response, treating as no events")
			return []Event{}, nil
		}
		c.metrics.ErrorsTotal.Inc()
		return nil, NewUpstreamError(fmt.Sprintf("Failed to fetch Sentry events: %v", err))
	}

	c.metrics.EventsFetched.Add(float64(len(events)))
	return events, nil
}

func (c *Client) classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter == "" {
			retryAfter = "60"
		}
		c.logger.Warn("Sentry rate limit exceeded. Retry after: %ss", retryAfter)
		return NewRateLimitError(retryAfter)

	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Error("Sentry authentication failed")
		return NewAuthError()

	case resp.StatusCode == http.StatusNotFound:
		c.logger.Error("Sentry project not found: %s", resp.Request.URL.Path)
		return NewNotFoundError()

	case resp.StatusCode >= 500:
		c.logger.Error("Sentry server error: %d", resp.StatusCode)
		return NewUpstreamError(fmt.Sprintf("Sentry server error: %d", resp.StatusCode))

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Error("Sentry API error: status=%d", resp.StatusCode)
		return NewUpstreamError(fmt.Sprintf("Sentry API error: status %d", resp.StatusCode))
	}
	return nil
}

// cacheKey derives a stable key from the exact query tuple. Map
// marshaling sorts keys, so equal inputs always hash equal.
func cacheKey(endpoint, customerID, timestamp string, windowMinutes int) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"url":                 endpoint,
		"customer_id":         customerID,
		"timestamp":           timestamp,
		"time_window_minutes": windowMinutes,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
