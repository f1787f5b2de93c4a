package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/resilience"
)

// maxSourceBytes bounds a single downloaded source
const maxSourceBytes = 64 << 20

// HTTPConfig configures an HTTPLoader
type HTTPConfig struct {
	BaseURL    string
	Files      map[models.SourceName]string
	Timeout    time.Duration
	MaxRetries int
	// Client overrides the default client, mainly for tests.
	Client *http.Client
}

// HTTPLoader downloads sources from <BaseURL>/<file>
type HTTPLoader struct {
	baseURL string
	files   map[models.SourceName]string
	httpCfg resilience.HTTPConfig
	cb      *gobreaker.CircuitBreaker
	logger  *logging.StructuredLogger
}

// NewHTTPLoader creates a loader that retries transient failures behind a circuit breaker
func NewHTTPLoader(cfg HTTPConfig, logger *logging.StructuredLogger) *HTTPLoader {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPLoader{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		files:   cfg.Files,
		httpCfg: resilience.HTTPConfig{
			Client: client,
			Backoff: resilience.BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 200 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		cb:     resilience.NewBreaker("source-http", 5, logger),
		logger: logger,
	}
}

// Backend returns "http"
func (l *HTTPLoader) Backend() string {
	return "http"
}

// Load downloads the source. Non-2xx responses become a FetchFailure carrying the status.
func (l *HTTPLoader) Load(ctx context.Context, name models.SourceName) ([]byte, error) {
	file, err := fileFor(l.files, name)
	if err != nil {
		return nil, err
	}
	target := l.baseURL + "/" + url.PathEscape(file)

	resp, err := resilience.Do(ctx, l.httpCfg, l.cb, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
		return req, nil
	})
	if err != nil {
		failure := &models.FetchFailure{Source: name, URL: target, Err: err}
		var se *resilience.StatusError
		if errors.As(err, &se) {
			failure.StatusCode = se.StatusCode
		}
		return nil, failure
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		failure := &models.FetchFailure{Source: name, URL: target, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			failure.Err = fmt.Errorf("%w: %s", models.ErrSourceNotFound, target)
		}
		return nil, failure
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, &models.FetchFailure{Source: name, URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if len(content) > maxSourceBytes {
		return nil, &models.FetchFailure{Source: name, URL: target, Err: fmt.Errorf("source exceeds %d bytes", maxSourceBytes)}
	}

	l.logger.Debug(ctx, "[SOURCE_HTTP] Source downloaded", logging.Fields{
		"source":     name,
		"url":        target,
		"size_bytes": len(content),
	})

	return content, nil
}
