package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

type stubProvider struct {
	data      models.GraphData
	err       error
	fetchedAt time.Time
}

func (s *stubProvider) GraphData(ctx context.Context) (models.GraphData, error) {
	return s.data, s.err
}

type fetchedAtProvider struct {
	stubProvider
}

func (s *fetchedAtProvider) FetchedAt() time.Time {
	return s.fetchedAt
}

const (
	jan1     = models.CanonicalTimestamp(1577836800000) // 2020-01-01T00:00:00Z
	jan1Half = jan1 + 1_800_000
)

func sampleData() models.GraphData {
	return models.GraphData{
		jan1:     {Consumption: models.Float(12.34), Temperature: models.Float(5.67), IsAnomalous: true},
		jan1Half: {Temperature: models.Float(0)},
	}
}

func newTestRouter(t *testing.T, api, dashboard GraphDataProvider, opts Options) (*mux.Router, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	var stats SummaryProvider = services.NewStatisticsService(api, time.UTC, logging.NewNopLogger(), collector)
	h := NewEnergyHandler(api, dashboard, stats, opts, logging.NewNopLogger(), collector)
	h.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router, collector
}

func serve(router http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestGetEnergy_Success(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	rr := serve(router, "/api/energy")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("Cache-Control"))

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 2)

	first := body["1577836800000"]
	assert.Equal(t, 12.34, first["consumption"])
	assert.Equal(t, 5.67, first["temperature"])
	assert.Equal(t, true, first["isAnomalous"])

	second := body["1577838600000"]
	assert.NotContains(t, second, "consumption")
	assert.Equal(t, 0.0, second["temperature"])
	assert.Equal(t, false, second["isAnomalous"])
}

func TestGetEnergy_EmptyMapping(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: models.GraphData{}}, nil, Options{})

	rr := serve(router, "/api/energy")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())
}

func TestGetEnergy_CacheControl(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{Revalidate: 30 * time.Minute})

	rr := serve(router, "/api/energy")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=1800", rr.Header().Get("Cache-Control"))
}

func TestGetEnergy_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name:       "parse failure",
			err:        &models.ParseFailure{Source: models.SourceWeather, Err: errors.New("bare quote")},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "parse_failure",
			wantMsg:    "unable to parse data from source weather",
		},
		{
			name:       "fetch failure",
			err:        &models.FetchFailure{Source: models.SourceEnergy, StatusCode: http.StatusNotFound},
			wantStatus: http.StatusBadGateway,
			wantKind:   "fetch_failure",
			wantMsg:    "failed to fetch energy",
		},
		{
			name:       "wrapped fetch failure",
			err:        fmt.Errorf("merge: %w", &models.FetchFailure{Source: models.SourceAnomalies, Err: errors.New("refused")}),
			wantStatus: http.StatusBadGateway,
			wantKind:   "fetch_failure",
			wantMsg:    "failed to fetch anomalies",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "timeout",
			wantMsg:    "timed out",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal_error",
			wantMsg:    "failed to build merged data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, collector := newTestRouter(t, &stubProvider{err: tt.err}, nil, Options{Revalidate: time.Minute})

			rr := serve(router, "/api/energy")

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error)
			assert.Contains(t, resp.Message, tt.wantMsg)

			assert.Equal(t, 1.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues(tt.wantKind, "/api/energy")))
		})
	}
}

func TestDashboard_RendersChart(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "Consumption vs Temperature (and Anomalies)")
	assert.Contains(t, body, "Click and drag on graph to zoom in")
	assert.Contains(t, body, "01/01/2020, 00:00")
	assert.Contains(t, body, "Data as of 01/03/2024, 12:00:00 UTC")
}

func TestDashboard_UsesSeparateProviderAndFetchTime(t *testing.T) {
	api := &stubProvider{err: errors.New("api provider must not be used")}
	dash := &fetchedAtProvider{stubProvider{
		data:      sampleData(),
		fetchedAt: time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC),
	}}
	router, _ := newTestRouter(t, api, dash, Options{})

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Data as of 29/02/2024, 23:30:00 UTC")
}

func TestDashboard_FailureRendersErrorPage(t *testing.T) {
	router, collector := newTestRouter(t,
		&stubProvider{err: &models.FetchFailure{URL: "http://api/api/energy", StatusCode: http.StatusServiceUnavailable}},
		nil, Options{})

	rr := serve(router, "/")

	require.Equal(t, http.StatusBadGateway, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Something went wrong")
	assert.Contains(t, body, "Failed to fetch data")
	assert.NotContains(t, body, "highcharts")
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("fetch_failure", "/")))
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubProvider{}, nil, Options{Backend: "file"})

		rr := serve(router, "/health")

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "file", body["backend"])
		assert.Equal(t, "2024-03-01T12:00:00Z", body["timestamp"])
	})

	t.Run("backend down", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubProvider{}, nil, Options{
			Backend:     "postgres",
			HealthCheck: func(ctx context.Context) error { return errors.New("connection refused") },
		})

		rr := serve(router, "/health")

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"unhealthy"`)
	})
}

func TestDocsRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{}, nil, Options{})

	rr := serve(router, "/api/docs/openapi.json")
	require.Equal(t, http.StatusOK, rr.Code)

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &spec))
	assert.Equal(t, "3.0.0", spec["openapi"])
	paths, ok := spec["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/energy")
	assert.Contains(t, paths, "/")

	rr = serve(router, "/api/docs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Energy Dashboard API Documentation")
	assert.Contains(t, rr.Body.String(), "/api/docs/openapi.json")
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/energy", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGetStatistics(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	rr := serve(router, "/api/energy/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data       []models.DailySummary `json:"data"`
		Total      int                   `json:"total"`
		Page       int                   `json:"page"`
		Limit      int                   `json:"limit"`
		TotalPages int                   `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 31, resp.Limit)
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Data, 1)

	day := resp.Data[0]
	assert.Equal(t, "2020-01-01", day.Date)
	assert.Equal(t, 2, day.IntervalCount)
	assert.Equal(t, 1, day.AnomalyCount)
	require.NotNil(t, day.MinTemperature)
	assert.Equal(t, 0.0, *day.MinTemperature)
}

func TestGetStatistics_DateFilter(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	rr := serve(router, "/api/energy/stats?from=2020-01-02&to=2020-01-31")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[],"total":0,"page":1,"limit":31,"total_pages":0}`, rr.Body.String())
}

func TestGetStatistics_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t, &stubProvider{data: sampleData()}, nil, Options{})

	for _, query := range []string{"from=01/01/2020", "to=tomorrow", "from=2020-02-01&to=2020-01-01"} {
		rr := serve(router, "/api/energy/stats?"+query)
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestGetStatistics_SourceFailure(t *testing.T) {
	router, collector := newTestRouter(t,
		&stubProvider{err: &models.FetchFailure{Source: models.SourceWeather, StatusCode: http.StatusNotFound}},
		nil, Options{})

	rr := serve(router, "/api/energy/stats")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("fetch_failure", "/api/energy/stats")))
}
