package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

type fixedSource struct {
	data models.GraphData
	err  error
}

func (f fixedSource) GraphData(ctx context.Context) (models.GraphData, error) {
	return f.data, f.err
}

var t4 = ms(2020, time.January, 2, 23, 30)

func twoDays() models.GraphData {
	return models.GraphData{
		t0: {Consumption: models.Float(10), Temperature: models.Float(4)},
		t1: {Consumption: models.Float(20), IsAnomalous: true},
		t2: {Temperature: models.Float(-2)},
		t4: {Consumption: models.Float(5), Temperature: models.Float(0), IsAnomalous: true},
	}
}

func TestSummarize(t *testing.T) {
	days := Summarize(twoDays(), time.UTC)
	require.Len(t, days, 2)

	first := days[0]
	assert.Equal(t, "2020-01-01", first.Date)
	assert.Equal(t, 3, first.IntervalCount)
	assert.Equal(t, 1, first.AnomalyCount)
	assert.Equal(t, 2, first.ValidConsumptionCount)
	assert.Equal(t, 2, first.ValidTemperatureCount)
	assert.Equal(t, 30.0, *first.TotalConsumption)
	assert.Equal(t, 15.0, *first.AvgConsumption)
	assert.Equal(t, 20.0, *first.PeakConsumption)
	assert.Equal(t, -2.0, *first.MinTemperature)
	assert.Equal(t, 4.0, *first.MaxTemperature)
	assert.Equal(t, 1.0, *first.AvgTemperature)

	second := days[1]
	assert.Equal(t, "2020-01-02", second.Date)
	require.NotNil(t, second.MinTemperature)
	assert.Equal(t, 0.0, *second.MinTemperature)
}

func TestSummarize_MissingValuesStayNil(t *testing.T) {
	days := Summarize(models.GraphData{t3: {IsAnomalous: true}}, time.UTC)
	require.Len(t, days, 1)

	assert.Equal(t, 1, days[0].AnomalyCount)
	assert.Nil(t, days[0].TotalConsumption)
	assert.Nil(t, days[0].AvgConsumption)
	assert.Nil(t, days[0].AvgTemperature)
}

func TestSummarize_GroupsByLocalDay(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2020-01-02T23:30Z is already 3 January in Tokyo
	days := Summarize(twoDays(), tokyo)
	require.Len(t, days, 2)
	assert.Equal(t, "2020-01-01", days[0].Date)
	assert.Equal(t, "2020-01-03", days[1].Date)
}

func TestStatisticsService_DailySummaries(t *testing.T) {
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	svc := NewStatisticsService(fixedSource{data: twoDays()}, time.UTC, logging.NewNopLogger(), collector)

	jan2 := time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    models.SummaryFilter
		wantDates []string
		wantTotal int
	}{
		{name: "all", filter: models.SummaryFilter{}, wantDates: []string{"2020-01-01", "2020-01-02"}, wantTotal: 2},
		{name: "from", filter: models.SummaryFilter{From: &jan2}, wantDates: []string{"2020-01-02"}, wantTotal: 1},
		{name: "to", filter: models.SummaryFilter{To: &jan2}, wantDates: []string{"2020-01-01", "2020-01-02"}, wantTotal: 2},
		{name: "limit", filter: models.SummaryFilter{Limit: 1}, wantDates: []string{"2020-01-01"}, wantTotal: 2},
		{name: "offset", filter: models.SummaryFilter{Limit: 1, Offset: 1}, wantDates: []string{"2020-01-02"}, wantTotal: 2},
		{name: "offset past end", filter: models.SummaryFilter{Offset: 5}, wantDates: []string{}, wantTotal: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, total, err := svc.DailySummaries(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			dates := make([]string, 0, len(days))
			for _, d := range days {
				dates = append(dates, d.Date)
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}
}

func TestStatisticsService_PropagatesMergeFailure(t *testing.T) {
	parseErr := &models.ParseFailure{Source: models.SourceEnergy, Err: errors.New("bad quote")}
	svc := NewStatisticsService(fixedSource{err: parseErr}, nil, logging.NewNopLogger(), nil)

	_, _, err := svc.DailySummaries(context.Background(), models.SummaryFilter{})

	var pf *models.ParseFailure
	assert.ErrorAs(t, err, &pf)
}
