package source

import (
	"context"
	"fmt"

	"energy-dashboard/internal/config"
	"energy-dashboard/internal/repository"
	"energy-dashboard/pkg/database"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

// HealthChecker is implemented by loaders whose backend can be probed
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FromConfig builds the loader selected by cfg.Sources.Backend.
// The returned close function releases backend resources and is never nil.
func FromConfig(cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (Loader, func() error, error) {
	files := cfg.FileNames()
	noop := func() error { return nil }

	switch cfg.Sources.Backend {
	case config.BackendFile:
		return NewFileLoader(cfg.Sources.DataDir, files), noop, nil

	case config.BackendHTTP:
		return NewHTTPLoader(HTTPConfig{
			BaseURL:    cfg.Sources.BaseURL,
			Files:      files,
			Timeout:    cfg.Sources.FetchTimeout,
			MaxRetries: cfg.Sources.MaxRetries,
		}, logger), noop, nil

	case config.BackendPostgres:
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewSourceRepository(db, logger)
		return NewPostgresLoader(repo, files), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown source backend %q", cfg.Sources.Backend)
	}
}
