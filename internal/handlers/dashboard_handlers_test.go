package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/exporter"
	"bike-dashboard/internal/models"
	"bike-dashboard/internal/presenter"
	"bike-dashboard/internal/services"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

type stubDB struct {
	err error
}

func (s stubDB) HealthCheck(ctx context.Context) error { return s.err }

func day(d int) time.Time {
	return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC)
}

func records() []models.RentalRecord {
	return []models.RentalRecord{
		{Date: day(1), Weekday: 6, Hour: 0, Season: 1, Weather: 1, WorkingDay: 0, Casual: 3, Registered: 13, HourlyTotal: 16, DailyTotal: 985},
		{Date: day(1), Weekday: 6, Hour: 1, Season: 1, Weather: 2, WorkingDay: 0, Casual: 8, Registered: 32, HourlyTotal: 40, DailyTotal: 985},
		{Date: day(3), Weekday: 1, Hour: 0, Season: 1, Weather: 1, WorkingDay: 1, Casual: 5, Registered: 10, HourlyTotal: 15, DailyTotal: 1349},
	}
}

type testServer struct {
	router    *mux.Router
	collector *metrics.Collector
}

func newTestServer(t *testing.T, ds *dataset.Dataset, db HealthChecker) *testServer {
	t.Helper()
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	svc := services.NewDashboardService(dataset.NewStore(ds), logging.Discard(), collector)
	h := NewDashboardHandler(svc, presenter.New(presenter.Options{}), db, logging.Discard(), collector)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{router: router, collector: collector}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestGetSummaries(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/api/summaries")
	require.Equal(t, http.StatusOK, rec.Code)

	var s services.Summaries
	decode(t, rec, &s)
	assert.Equal(t, day(1), s.Range.Start)
	assert.Equal(t, day(3), s.Range.End)
	assert.Len(t, s.Daily, 3)
	assert.Nil(t, s.Daily[1].DailyUsers)
	assert.Equal(t, 3, s.TotalDays)
	assert.Equal(t, 2334, s.TotalRents)
}

func TestGetSummaries_Errors(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantMsg  string
	}{
		{name: "malformed start", target: "/api/summaries?start_date=01/02/2011", wantCode: http.StatusBadRequest, wantMsg: "invalid start_date format, expected YYYY-MM-DD"},
		{name: "impossible end", target: "/api/summaries?end_date=2011-02-30", wantCode: http.StatusBadRequest, wantMsg: "invalid end_date format, expected YYYY-MM-DD"},
		{name: "inverted", target: "/api/summaries?start_date=2011-01-03&end_date=2011-01-01", wantCode: http.StatusBadRequest, wantMsg: "start_date must not be after end_date"},
		{name: "unknown series", target: "/api/dashboard?series=tourists", wantCode: http.StatusBadRequest, wantMsg: "invalid series, expected one of casual, registered, all"},
		{name: "unknown kind", target: "/api/summaries/monthly", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.get(t, tt.target)
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, http.StatusText(tt.wantCode), resp.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(srv.collector.APIErrorsTotal.WithLabelValues("bad_request", "/api/summaries")))
}

func TestGetSummaries_NotLoaded(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, target := range []string{"/", "/api/summaries", "/api/bounds", "/api/export.xlsx"} {
		rec := srv.get(t, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestGetSummary(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/api/summaries/season?start_date=2011-01-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind  string                   `json:"kind"`
		Range dataset.DateRange        `json:"range"`
		Data  []models.CategorySummary `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "season", resp.Kind)
	assert.Equal(t, day(3), resp.Range.Start)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 3, resp.Data[0].Records, "season ignores the range")

	rec = srv.get(t, "/api/summaries/weather?start_date=2011-01-03")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Clear", resp.Data[0].Label)
}

func TestGetDashboard(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/api/dashboard?series=registered&start_date=2010-06-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var d presenter.Dashboard
	decode(t, rec, &d)
	assert.Equal(t, presenter.SeriesRegistered, d.Series)
	assert.Equal(t, day(1), d.Range.Start, "clamped to the data")
	assert.Equal(t, "Registered Users", d.Daily.Series[0].Name)
	assert.Equal(t, "2,334", d.Metrics[1].Display)
}

func TestGetSummaries_SingleBoundOutsideData(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	tests := []struct {
		target string
		want   time.Time
	}{
		{target: "/api/summaries?start_date=2011-02-01", want: day(3)},
		{target: "/api/summaries?end_date=2010-01-01", want: day(1)},
	}

	for _, tt := range tests {
		rec := srv.get(t, tt.target)
		require.Equal(t, http.StatusOK, rec.Code, tt.target)

		var s services.Summaries
		decode(t, rec, &s)
		assert.Equal(t, tt.want, s.Range.Start, tt.target)
		assert.Equal(t, tt.want, s.Range.End, tt.target)
	}
}

func TestGetBounds(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/api/bounds")
	require.Equal(t, http.StatusOK, rec.Code)

	var b services.Bounds
	decode(t, rec, &b)
	assert.Equal(t, day(1), b.Range.Start)
	assert.Equal(t, day(3), b.Range.End)
	assert.Equal(t, 3, b.Records)
}

func TestGetPage(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/?series=all")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Bike Renting Dashboard</h1>")
	assert.Contains(t, body, `min="2011-01-01"`)
	assert.Contains(t, body, `max="2011-01-03"`)
	assert.Contains(t, body, "All dates (ignores the selected range)")
	assert.Contains(t, body, "Copyright (c) Ridhow 2023")
	assert.Contains(t, body, LogoURL)
	assert.Contains(t, body, `<canvas id="chart-daily">`)
	assert.NotContains(t, body, EmptyChartText)
}

func TestGetPage_EmptyRange(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/?start_date=2011-01-02&end_date=2011-01-02")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, EmptyChartText)
	assert.Contains(t, body, `<canvas id="chart-season">`)
	assert.NotContains(t, body, `<canvas id="chart-daily">`)
}

func TestExportWorkbook(t *testing.T) {
	srv := newTestServer(t, dataset.New(records(), "memory"), nil)

	rec := srv.get(t, "/api/export.xlsx?end_date=2011-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exporter.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bike-rentals_2011-01-01_2011-01-01.xlsx")
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.collector.ExportsTotal))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exporter.SheetDaily)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		ds         *dataset.Dataset
		db         HealthChecker
		wantCode   int
		wantStatus string
	}{
		{name: "csv", ds: dataset.New(records(), "csv"), wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "postgres", ds: dataset.New(records(), "postgres"), db: stubDB{}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "database down", ds: dataset.New(records(), "postgres"), db: stubDB{err: errors.New("connection refused")}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
		{name: "not loaded", wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.ds, tt.db)
			rec := srv.get(t, "/health")
			assert.Equal(t, tt.wantCode, rec.Code)

			var body map[string]interface{}
			decode(t, rec, &body)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestDocs(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := srv.get(t, "/api/docs/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var spec map[string]interface{}
	decode(t, rec, &spec)
	paths, ok := spec["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/summaries/{kind}")
	assert.Contains(t, paths, "/api/export.xlsx")

	rec = srv.get(t, "/api/docs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
}
