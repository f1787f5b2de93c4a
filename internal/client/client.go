// Package client fetches the merged mapping from a running API, the way the
// dashboard page does when it is deployed apart from the API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
	"energy-dashboard/pkg/resilience"
)

// EnergyPath is the API route serving the merged mapping
const EnergyPath = "/api/energy"

// ErrFetchFailed is wrapped by every failure to obtain the mapping
var ErrFetchFailed = errors.New("failed to fetch data")

// Config configures a Client
type Config struct {
	BaseURL string
	// Revalidate is how long a successful response is reused. Zero disables caching.
	Revalidate time.Duration
	Timeout    time.Duration
	MaxRetries int
	Client     *http.Client
}

// Client is an HTTP consumer of GET /api/energy with a revalidation cache
type Client struct {
	url        string
	revalidate time.Duration
	httpCfg    resilience.HTTPConfig
	cb         *gobreaker.CircuitBreaker
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	now        func() time.Time

	mu        sync.RWMutex
	cached    models.GraphData
	fetchedAt time.Time
}

// New creates a new API client
func New(cfg Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        strings.TrimRight(cfg.BaseURL, "/") + EnergyPath,
		revalidate: cfg.Revalidate,
		httpCfg: resilience.HTTPConfig{
			Client: httpClient,
			Backoff: resilience.BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 250 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		cb:      resilience.NewBreaker("energy-api", 5, logger),
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// GraphData returns the cached mapping while it is fresh, otherwise fetches it.
// Failures are never cached and are returned to the caller.
func (c *Client) GraphData(ctx context.Context) (models.GraphData, error) {
	if data, ok := c.fresh(); ok {
		c.metrics.RecordCacheLookup(true)
		return data, nil
	}
	c.metrics.RecordCacheLookup(false)

	return c.Refresh(ctx)
}

// FetchedAt reports when the cached mapping was fetched, zero if never
func (c *Client) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Refresh fetches the mapping unconditionally and stores it when caching is enabled
func (c *Client) Refresh(ctx context.Context) (models.GraphData, error) {
	data, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error(ctx, "[DASHBOARD_FETCH_ERROR] Failed to fetch data", logging.Fields{
			"url": c.url,
		}, err)
		return nil, err
	}

	if c.revalidate > 0 {
		c.mu.Lock()
		c.cached = data
		c.fetchedAt = c.now()
		c.mu.Unlock()
	}

	c.logger.Debug(ctx, "[DASHBOARD_FETCH] Mapping fetched", logging.Fields{
		"url":     c.url,
		"records": len(data),
	})

	return data, nil
}

func (c *Client) fresh() (models.GraphData, bool) {
	if c.revalidate <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || c.now().Sub(c.fetchedAt) >= c.revalidate {
		return nil, false
	}
	return c.cached, true
}

func (c *Client) fetch(ctx context.Context) (models.GraphData, error) {
	resp, err := resilience.Do(ctx, c.httpCfg, c.cb, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		failure := &models.FetchFailure{URL: c.url, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
		var se *resilience.StatusError
		if errors.As(err, &se) {
			failure.StatusCode = se.StatusCode
		}
		return nil, failure
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.FetchFailure{URL: c.url, StatusCode: resp.StatusCode, Err: ErrFetchFailed}
	}

	var data models.GraphData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &models.FetchFailure{URL: c.url, Err: fmt.Errorf("%w: invalid response body: %v", ErrFetchFailed, err)}
	}
	if data == nil {
		data = models.GraphData{}
	}

	return data, nil
}
