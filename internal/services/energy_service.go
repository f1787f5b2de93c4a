package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"energy-dashboard/internal/models"
	"energy-dashboard/internal/source"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

// EnergyService builds the merged energy/weather/anomaly mapping
type EnergyService struct {
	loader     source.Loader
	normalizer Normalizer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewEnergyService creates a new energy service. loc is the zone source dates are written in.
func NewEnergyService(loader source.Loader, loc *time.Location, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *EnergyService {
	return &EnergyService{
		loader:     loader,
		normalizer: NewNormalizer(loc),
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// GraphData loads the three sources concurrently and merges them.
// The operation is all-or-nothing: the first source to fail cancels the
// others and its error is returned with no partial mapping.
func (s *EnergyService) GraphData(ctx context.Context) (models.GraphData, error) {
	timer := s.metrics.NewTimer(s.metrics.MergeDuration)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errOnce  sync.Once
		firstErr error
	)
	readings := make(map[models.SourceName][]models.Reading, len(models.AllSources))

	for _, name := range models.AllSources {
		wg.Add(1)
		go func(name models.SourceName) {
			defer wg.Done()

			rs, err := s.loadSource(ctx, name)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}

			mu.Lock()
			readings[name] = rs
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		s.logger.Error(ctx, "[MERGE_ABORTED] Source failure aborted the merge", logging.Fields{
			"backend": s.loader.Backend(),
		}, firstErr)
		return nil, firstErr
	}

	result := Merge(
		readings[models.SourceEnergy],
		readings[models.SourceWeather],
		readings[models.SourceAnomalies],
	)

	for _, name := range models.AllSources {
		s.reportDuplicates(ctx, name, result.Duplicates[name])
	}

	anomalous := result.Data.AnomalyCount()
	s.metrics.MergedRecords.Set(float64(len(result.Data)))
	s.metrics.MergedAnomalousRecords.Set(float64(anomalous))
	duration := timer.ObserveDuration()

	s.logger.Info(ctx, "[MERGE_COMPLETE] Sources merged", logging.Fields{
		"backend":      s.loader.Backend(),
		"records":      len(result.Data),
		"anomalous":    anomalous,
		"energy_rows":  len(readings[models.SourceEnergy]),
		"weather_rows": len(readings[models.SourceWeather]),
		"anomaly_rows": len(readings[models.SourceAnomalies]),
		"duration_ms":  duration.Milliseconds(),
	})

	return result.Data, nil
}

// loadSource fetches, parses and normalizes one source
func (s *EnergyService) loadSource(ctx context.Context, name models.SourceName) ([]models.Reading, error) {
	backend := s.loader.Backend()
	start := time.Now()

	content, err := s.loader.Load(ctx, name)
	s.metrics.SourceLoadDuration.WithLabelValues(string(name), backend).Observe(time.Since(start).Seconds())
	if err != nil {
		var ff *models.FetchFailure
		if !errors.As(err, &ff) {
			err = &models.FetchFailure{Source: name, Err: err}
		}
		if !errors.Is(err, context.Canceled) {
			s.metrics.RecordSourceError(string(name), "fetch")
			s.logger.Error(ctx, "[SOURCE_FETCH_ERROR] Failed to load source", logging.Fields{
				"source":  name,
				"backend": backend,
			}, err)
		}
		return nil, err
	}

	rows, err := ParseRows(name, content)
	if err != nil {
		s.metrics.RecordSourceError(string(name), "parse")
		s.logger.Error(ctx, "[SOURCE_PARSE_ERROR] Failed to parse source", logging.Fields{
			"source":     name,
			"size_bytes": len(content),
		}, err)
		return nil, err
	}
	s.metrics.RowsParsedTotal.WithLabelValues(string(name)).Add(float64(len(rows)))

	readings, rejected := s.normalizer.Readings(name, rows)
	for _, r := range rejected {
		s.metrics.RecordRejectedRow(string(name), r.Reason)
		s.logger.Warn(ctx, "[ROW_REJECTED] Dropping row that could not be normalized", logging.Fields{
			"source": name,
			"row":    r.Row,
			"reason": r.Reason,
			"error":  r.Err.Error(),
		})
	}

	s.logger.Debug(ctx, "[SOURCE_LOADED] Source normalized", logging.Fields{
		"source":      name,
		"backend":     backend,
		"rows":        len(rows),
		"readings":    len(readings),
		"rejected":    len(rejected),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return readings, nil
}

// reportDuplicates keeps last-write-wins collisions visible
func (s *EnergyService) reportDuplicates(ctx context.Context, name models.SourceName, dups []models.CanonicalTimestamp) {
	if len(dups) == 0 {
		return
	}
	s.metrics.RecordDuplicates(string(name), len(dups))

	keys := make([]string, 0, len(dups))
	for _, ts := range dups {
		keys = append(keys, fmt.Sprintf("%d (%s)", ts, time.UnixMilli(int64(ts)).UTC().Format(time.RFC3339)))
	}

	s.logger.Warn(ctx, "[DUPLICATE_TIMESTAMP] Later rows overwrote earlier rows with the same timestamp", logging.Fields{
		"source":     name,
		"count":      len(dups),
		"timestamps": keys,
	})
}
