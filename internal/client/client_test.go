package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

const body = `{"1577836800000":{"consumption":12.34,"temperature":5.67,"isAnomalous":true}}`

type apiStub struct {
	calls  int32
	status int32
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.calls, 1)
	if r.URL.Path != EnergyPath {
		http.NotFound(w, r)
		return
	}
	if code := atomic.LoadInt32(&s.status); code != 0 {
		w.WriteHeader(int(code))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func newTestClient(t *testing.T, stub *apiStub, revalidate time.Duration) (*Client, *metrics.Collector) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	c := New(Config{BaseURL: srv.URL + "/", Revalidate: revalidate, Timeout: 2 * time.Second}, logging.NewNopLogger(), collector)
	return c, collector
}

func TestClient_DecodesMapping(t *testing.T) {
	c, _ := newTestClient(t, &apiStub{}, 0)

	data, err := c.GraphData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.GraphData{
		1577836800000: {Consumption: models.Float(12.34), Temperature: models.Float(5.67), IsAnomalous: true},
	}, data)
}

func TestClient_NoCachingWhenRevalidateIsZero(t *testing.T) {
	stub := &apiStub{}
	c, _ := newTestClient(t, stub, 0)

	for i := 0; i < 3; i++ {
		_, err := c.GraphData(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&stub.calls))
	assert.True(t, c.FetchedAt().IsZero())
}

func TestClient_RevalidationWindow(t *testing.T) {
	stub := &apiStub{}
	c, collector := newTestClient(t, stub, 30*time.Minute)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.GraphData(context.Background())
	require.NoError(t, err)

	now = now.Add(29 * time.Minute)
	_, err = c.GraphData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))

	now = now.Add(time.Minute)
	_, err = c.GraphData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
	assert.Equal(t, now, c.FetchedAt())

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DashboardCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.DashboardCacheTotal.WithLabelValues("miss")))
}

func TestClient_FailuresAreNotCached(t *testing.T) {
	stub := &apiStub{status: http.StatusBadRequest}
	c, _ := newTestClient(t, stub, time.Hour)

	_, err := c.GraphData(context.Background())
	require.Error(t, err)

	var ff *models.FetchFailure
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, http.StatusBadRequest, ff.StatusCode)
	assert.ErrorIs(t, err, ErrFetchFailed)

	atomic.StoreInt32(&stub.status, 0)
	data, err := c.GraphData(context.Background())
	require.NoError(t, err)
	assert.Len(t, data, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
}

func TestClient_ServerErrorIsFetchFailure(t *testing.T) {
	c, _ := newTestClient(t, &apiStub{status: http.StatusInternalServerError}, 0)

	_, err := c.GraphData(context.Background())

	var ff *models.FetchFailure
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, http.StatusInternalServerError, ff.StatusCode)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, ff.IsTransient())
}

func TestClient_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logging.NewNopLogger(), metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry()))
	_, err := c.GraphData(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
}
