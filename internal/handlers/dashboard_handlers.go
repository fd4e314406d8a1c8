package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/exporter"
	"bike-dashboard/internal/models"
	"bike-dashboard/internal/presenter"
	"bike-dashboard/internal/services"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// HealthChecker is satisfied by the database when the dashboard reads from
// PostgreSQL.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DashboardHandler serves the dashboard page and its JSON API
type DashboardHandler struct {
	service   *services.DashboardService
	presenter *presenter.Presenter
	db        HealthChecker
	validate  *validator.Validate
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewDashboardHandler creates a new dashboard handler. db may be nil.
func NewDashboardHandler(
	service *services.DashboardService,
	p *presenter.Presenter,
	db HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
	})

	return &DashboardHandler{
		service:   service,
		presenter: p,
		db:        db,
		validate:  v,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// DashboardQuery holds the query parameters shared by every dashboard route.
type DashboardQuery struct {
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Series    string `query:"series" validate:"omitempty,max=32"`
}

// requestError is a client error answered with status 400.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

type dashboardRequest struct {
	start  *time.Time
	end    *time.Time
	series presenter.SeriesOption
}

func (h *DashboardHandler) parseQuery(r *http.Request) (*dashboardRequest, error) {
	q := r.URL.Query()
	query := DashboardQuery{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
		Series:    strings.TrimSpace(q.Get("series")),
	}

	if err := h.validate.Struct(query); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "datetime" {
				return nil, &requestError{fmt.Sprintf("invalid %s format, expected YYYY-MM-DD", fe.Field())}
			}
			return nil, &requestError{fmt.Sprintf("invalid %s", fe.Field())}
		}
		return nil, err
	}

	req := &dashboardRequest{}
	series, err := presenter.ParseSeriesOption(query.Series)
	if err != nil {
		return nil, &requestError{fmt.Sprintf("invalid series, expected one of %s", seriesNames())}
	}
	req.series = series

	// formats are already checked by the validator
	if query.StartDate != "" {
		t, _ := time.Parse(models.DateLayout, query.StartDate)
		req.start = &t
	}
	if query.EndDate != "" {
		t, _ := time.Parse(models.DateLayout, query.EndDate)
		req.end = &t
	}
	return req, nil
}

func seriesNames() string {
	names := make([]string, 0, 3)
	for _, o := range presenter.SeriesOptions() {
		names = append(names, string(o))
	}
	return strings.Join(names, ", ")
}

// summarize runs the shared request flow: parse, resolve, recompute.
func (h *DashboardHandler) summarize(r *http.Request) (*services.Summaries, *dashboardRequest, error) {
	req, err := h.parseQuery(r)
	if err != nil {
		return nil, nil, err
	}

	rng, err := h.service.Resolve(r.Context(), req.start, req.end)
	if err != nil {
		return nil, nil, err
	}

	s, err := h.service.Summarize(r.Context(), rng)
	if err != nil {
		return nil, nil, err
	}
	return s, req, nil
}

// handleError maps service errors to responses.
func (h *DashboardHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		h.metrics.RecordAPIError("bad_request", endpoint)
		h.sendError(w, reqErr.message, http.StatusBadRequest)
	case errors.Is(err, dataset.ErrInvalidRange):
		h.metrics.RecordAPIError("bad_request", endpoint)
		h.sendError(w, "start_date must not be after end_date", http.StatusBadRequest)
	case errors.Is(err, services.ErrDatasetNotLoaded):
		h.metrics.RecordAPIError("unavailable", endpoint)
		h.sendError(w, "dataset is not loaded yet", http.StatusServiceUnavailable)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, "failed to build dashboard", http.StatusInternalServerError)
	}
}

func (h *DashboardHandler) buildDashboard(r *http.Request) (*presenter.Dashboard, error) {
	s, req, err := h.summarize(r)
	if err != nil {
		return nil, err
	}
	bounds, err := h.service.Bounds(r.Context())
	if err != nil {
		return nil, err
	}
	return h.presenter.Build(s, bounds.Range, req.series), nil
}

// GetPage handles GET /
func (h *DashboardHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	d, err := h.buildDashboard(r)
	if err != nil {
		h.handleError(w, r, "/", err)
		return
	}

	var buf bytes.Buffer
	if err := renderPage(&buf, d); err != nil {
		h.handleError(w, r, "/", fmt.Errorf("failed to render page: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.buildDashboard(r)
	if err != nil {
		h.handleError(w, r, "/api/dashboard", err)
		return
	}
	h.sendJSON(w, d, http.StatusOK)
}

// GetSummaries handles GET /api/summaries
func (h *DashboardHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	s, _, err := h.summarize(r)
	if err != nil {
		h.handleError(w, r, "/api/summaries", err)
		return
	}
	h.sendJSON(w, s, http.StatusOK)
}

// GetSummary handles GET /api/summaries/{kind}
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/summaries/{kind}"
	kind := mux.Vars(r)["kind"]

	s, _, err := h.summarize(r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	var rows interface{}
	switch kind {
	case "daily":
		rows = s.Daily
	case "hourly":
		rows = s.Hourly
	case "season":
		rows = s.Season
	case "weather":
		rows = s.Weather
	case "holiday":
		rows = s.Holiday
	default:
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, fmt.Sprintf("unknown summary %q, expected one of daily, hourly, season, weather, holiday", kind), http.StatusNotFound)
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"kind":  kind,
		"range": s.Range,
		"data":  rows,
	}, http.StatusOK)
}

// GetBounds handles GET /api/bounds
func (h *DashboardHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Bounds(r.Context())
	if err != nil {
		h.handleError(w, r, "/api/bounds", err)
		return
	}
	h.sendJSON(w, b, http.StatusOK)
}

// ExportWorkbook handles GET /api/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/export.xlsx"

	s, _, err := h.summarize(r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteWorkbook(&buf, s); err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	filename := fmt.Sprintf("bike-rentals_%s_%s.xlsx",
		s.Range.Start.Format(models.DateLayout), s.Range.End.Format(models.DateLayout))

	h.metrics.ExportsTotal.Inc()
	h.logger.Info(r.Context(), "[EXPORT] Workbook exported", logging.Fields{
		"range":   s.Range.String(),
		"records": s.Records,
		"bytes":   buf.Len(),
	})

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if b, err := h.service.Bounds(ctx); err != nil {
		status["status"] = "unhealthy"
		status["dataset"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status["dataset"] = b
	}

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": status["status"],
	})
	h.sendJSON(w, status, code)
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all dashboard routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.GetPage).Methods("GET")
	router.HandleFunc("/api/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/summaries", h.GetSummaries).Methods("GET")
	router.HandleFunc("/api/summaries/{kind}", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/bounds", h.GetBounds).Methods("GET")
	router.HandleFunc("/api/export.xlsx", h.ExportWorkbook).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
