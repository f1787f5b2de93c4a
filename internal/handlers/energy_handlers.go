package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"energy-dashboard/internal/chart"
	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

// GraphDataProvider produces the merged mapping, either by merging the sources
// in-process or by fetching it from a running API.
type GraphDataProvider interface {
	GraphData(ctx context.Context) (models.GraphData, error)
}

// SummaryProvider returns a page of daily summaries and the total matching the filter
type SummaryProvider interface {
	DailySummaries(ctx context.Context, filter models.SummaryFilter) ([]models.DailySummary, int, error)
}

// Options configures an EnergyHandler
type Options struct {
	// Location is used to format chart categories
	Location *time.Location
	// Revalidate is advertised as Cache-Control max-age on successful API responses. Zero omits the header.
	Revalidate time.Duration
	// Backend names the source backend reported by /health
	Backend string
	// HealthCheck probes the source backend. Nil reports healthy.
	HealthCheck func(ctx context.Context) error
}

// EnergyHandler serves the merged mapping and the dashboard page
type EnergyHandler struct {
	api       GraphDataProvider
	dashboard GraphDataProvider
	stats     SummaryProvider
	opts      Options
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewEnergyHandler creates a new energy handler. api backs /api/energy and
// dashboard backs the chart page; they may be the same provider.
func NewEnergyHandler(
	api GraphDataProvider,
	dashboard GraphDataProvider,
	stats SummaryProvider,
	opts Options,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EnergyHandler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if dashboard == nil {
		dashboard = api
	}
	return &EnergyHandler{
		api:       api,
		dashboard: dashboard,
		stats:     stats,
		opts:      opts,
		logger:    logger,
		metrics:   metricsCollector,
		now:       time.Now,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetEnergy handles GET /api/energy
func (h *EnergyHandler) GetEnergy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.api.GraphData(ctx)
	if err != nil {
		status, kind := classify(err)
		h.logger.Error(ctx, "[API_GET_ENERGY_ERROR] Failed to build merged data", logging.Fields{
			"status": status,
			"kind":   kind,
		}, err)
		h.metrics.RecordAPIError(kind, "/api/energy")
		w.Header().Set("Cache-Control", "no-store")
		h.sendError(w, errorMessage(err, status), status)
		return
	}

	if h.opts.Revalidate > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.opts.Revalidate.Seconds())))
	}
	h.sendJSON(w, data, http.StatusOK)
}

// GetStatistics handles GET /api/energy/stats
func (h *EnergyHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 31

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 366 {
			limit = l
		}
	}

	filter := models.SummaryFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if fromStr != "" {
		from, err := time.Parse(services.DateLayout, fromStr)
		if err != nil {
			h.sendError(w, "invalid from date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.From = &from
	}

	if toStr != "" {
		to, err := time.Parse(services.DateLayout, toStr)
		if err != nil {
			h.sendError(w, "invalid to date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		h.sendError(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	days, total, err := h.stats.DailySummaries(ctx, filter)
	if err != nil {
		status, kind := classify(err)
		h.logger.Error(ctx, "[API_GET_STATISTICS_ERROR] Failed to get statistics", logging.Fields{
			"status": status,
			"kind":   kind,
			"from":   fromStr,
			"to":     toStr,
		}, err)
		h.metrics.RecordAPIError(kind, "/api/energy/stats")
		h.sendError(w, errorMessage(err, status), status)
		return
	}

	response := PaginatedResponse{
		Data:       days,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	if h.opts.Revalidate > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.opts.Revalidate.Seconds())))
	}
	h.sendJSON(w, response, http.StatusOK)
}

// Dashboard handles GET /
func (h *EnergyHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.dashboard.GraphData(ctx)
	if err != nil {
		status, kind := classify(err)
		h.logger.Error(ctx, "[DASHBOARD_ERROR] Failed to fetch data", logging.Fields{
			"status": status,
			"kind":   kind,
		}, err)
		h.metrics.RecordAPIError(kind, "/")
		h.sendPage(w, status, func(buf *bytes.Buffer) error {
			return chart.RenderError(buf, "Failed to fetch data")
		})
		return
	}

	generatedAt := h.now()
	if f, ok := h.dashboard.(interface{ FetchedAt() time.Time }); ok {
		if at := f.FetchedAt(); !at.IsZero() {
			generatedAt = at
		}
	}

	opts := chart.Build(data, h.opts.Location)
	h.sendPage(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return chart.Render(buf, opts, generatedAt)
	})
}

// HealthCheck handles GET /health
func (h *EnergyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"backend":   h.opts.Backend,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	if h.opts.HealthCheck != nil {
		if err := h.opts.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Source backend unreachable", logging.Fields{
				"backend": h.opts.Backend,
				"error":   err.Error(),
			})
			status["status"] = "unhealthy"
			h.sendJSON(w, status, http.StatusServiceUnavailable)
			return
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// classify maps a merge error to an HTTP status and a metric label
func classify(err error) (int, string) {
	var parseErr *models.ParseFailure
	var fetchErr *models.FetchFailure

	switch {
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError, "parse_failure"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "fetch_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorMessage(err error, status int) string {
	var parseErr *models.ParseFailure
	var fetchErr *models.FetchFailure
	if errors.As(err, &parseErr) || errors.As(err, &fetchErr) {
		return err.Error()
	}
	if status == http.StatusGatewayTimeout {
		return "timed out loading sources"
	}
	return "failed to build merged data"
}

// sendJSON sends a JSON response
func (h *EnergyHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *EnergyHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendPage renders into a buffer first so a template failure never leaves a half-written page
func (h *EnergyHandler) sendPage(w http.ResponseWriter, statusCode int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.Error(context.Background(), "[DASHBOARD_RENDER_ERROR] Failed to render page", logging.Fields{}, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

// RegisterRoutes registers the API, dashboard and documentation routes
func (h *EnergyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/energy", h.GetEnergy).Methods("GET")
	router.HandleFunc("/api/energy/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/", h.Dashboard).Methods("GET")
}
