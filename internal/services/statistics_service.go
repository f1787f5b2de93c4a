package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

// DateLayout is the calendar date format used by daily summaries and their filters
const DateLayout = "2006-01-02"

// GraphDataSource produces the merged mapping the statistics are computed from
type GraphDataSource interface {
	GraphData(ctx context.Context) (models.GraphData, error)
}

// StatisticsService computes per-day aggregates over the merged mapping
type StatisticsService struct {
	source  GraphDataSource
	loc     *time.Location
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(source GraphDataSource, loc *time.Location, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatisticsService{
		source:  source,
		loc:     loc,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// DailySummaries merges the sources and returns one page of daily summaries plus the
// total number of days matching the filter
func (s *StatisticsService) DailySummaries(ctx context.Context, filter models.SummaryFilter) ([]models.DailySummary, int, error) {
	startTime := time.Now()

	data, err := s.source.GraphData(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load merged data: %w", err)
	}

	all := Summarize(data, s.loc)
	matched := make([]models.DailySummary, 0, len(all))
	for _, day := range all {
		if inRange(day.Date, filter) {
			matched = append(matched, day)
		}
	}

	total := len(matched)
	page := paginate(matched, filter.Offset, filter.Limit)

	s.logger.Debug(ctx, "[STATS_CALC_COMPLETE] Daily summaries calculated", logging.Fields{
		"records":          len(data),
		"days":             len(all),
		"matched":          total,
		"returned":         len(page),
		"duration_seconds": time.Since(startTime).Seconds(),
	})

	return page, total, nil
}

// Summarize groups records by calendar day in loc, ordered by date
func Summarize(data models.GraphData, loc *time.Location) []models.DailySummary {
	if loc == nil {
		loc = time.UTC
	}

	type accumulator struct {
		summary     models.DailySummary
		consumption float64
		temperature float64
	}

	days := make(map[string]*accumulator)
	for ts, rec := range data {
		date := time.UnixMilli(int64(ts)).In(loc).Format(DateLayout)
		acc, ok := days[date]
		if !ok {
			acc = &accumulator{summary: models.DailySummary{Date: date}}
			days[date] = acc
		}

		sum := &acc.summary
		sum.IntervalCount++
		if rec.IsAnomalous {
			sum.AnomalyCount++
		}

		if rec.Consumption != nil {
			v := *rec.Consumption
			acc.consumption += v
			sum.ValidConsumptionCount++
			if sum.PeakConsumption == nil || v > *sum.PeakConsumption {
				sum.PeakConsumption = models.Float(v)
			}
		}

		if rec.Temperature != nil {
			v := *rec.Temperature
			acc.temperature += v
			sum.ValidTemperatureCount++
			if sum.MinTemperature == nil || v < *sum.MinTemperature {
				sum.MinTemperature = models.Float(v)
			}
			if sum.MaxTemperature == nil || v > *sum.MaxTemperature {
				sum.MaxTemperature = models.Float(v)
			}
		}
	}

	summaries := make([]models.DailySummary, 0, len(days))
	for _, acc := range days {
		sum := acc.summary
		if sum.ValidConsumptionCount > 0 {
			sum.TotalConsumption = models.Float(acc.consumption)
			sum.AvgConsumption = models.Float(acc.consumption / float64(sum.ValidConsumptionCount))
		}
		if sum.ValidTemperatureCount > 0 {
			sum.AvgTemperature = models.Float(acc.temperature / float64(sum.ValidTemperatureCount))
		}
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Date < summaries[j].Date })
	return summaries
}

// inRange compares ISO dates lexically, which matches calendar order
func inRange(date string, filter models.SummaryFilter) bool {
	if filter.From != nil && date < filter.From.Format(DateLayout) {
		return false
	}
	if filter.To != nil && date > filter.To.Format(DateLayout) {
		return false
	}
	return true
}

func paginate(days []models.DailySummary, offset, limit int) []models.DailySummary {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(days) {
		return []models.DailySummary{}
	}
	end := len(days)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return days[offset:end]
}
