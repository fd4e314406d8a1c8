package services

import (
	"context"
	"errors"
	"time"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/models"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// ErrDatasetNotLoaded is returned while the store holds no dataset.
var ErrDatasetNotLoaded = errors.New("dataset not loaded")

// DatasetProvider hands out the dataset currently being served.
type DatasetProvider interface {
	Current() *dataset.Dataset
}

// Bounds describes the span of the loaded data.
type Bounds struct {
	Range    dataset.DateRange `json:"range"`
	Records  int               `json:"records"`
	Source   string            `json:"source"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// Summaries is everything the dashboard shows for one date range.
type Summaries struct {
	Range      dataset.DateRange        `json:"range"`
	Records    int                      `json:"records"`
	Daily      []models.DailySummary    `json:"daily"`
	Hourly     []models.HourlySummary   `json:"hourly"`
	Season     []models.CategorySummary `json:"season"`
	Weather    []models.CategorySummary `json:"weather"`
	Holiday    []models.CategorySummary `json:"holiday"`
	TotalDays  int                      `json:"total_days"`
	TotalRents int                      `json:"total_rents"`
}

// DashboardService computes the dashboard summaries on demand
type DashboardService struct {
	data    DatasetProvider
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(data DatasetProvider, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	return &DashboardService{
		data:    data,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (s *DashboardService) current() (*dataset.Dataset, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrDatasetNotLoaded
	}
	return ds, nil
}

// Bounds returns the date span of the loaded data.
func (s *DashboardService) Bounds(ctx context.Context) (*Bounds, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	r, _ := ds.Bounds()
	return &Bounds{
		Range:    r,
		Records:  ds.Len(),
		Source:   ds.Source(),
		LoadedAt: ds.LoadedAt(),
	}, nil
}

// Resolve turns optional request bounds into a range inside the data span.
// A nil bound defaults to the matching data bound. Only a request whose own
// bounds are inverted is rejected; each bound is clamped on its own, so a
// single bound outside the data collapses onto the nearest data bound.
func (s *DashboardService) Resolve(ctx context.Context, start, end *time.Time) (dataset.DateRange, error) {
	ds, err := s.current()
	if err != nil {
		return dataset.DateRange{}, err
	}
	if start != nil && end != nil {
		if _, err := dataset.NewDateRange(*start, *end); err != nil {
			return dataset.DateRange{}, err
		}
	}

	b, _ := ds.Bounds()
	from, to := b.Start, b.End
	if start != nil {
		from = models.TruncateDay(*start)
	}
	if end != nil {
		to = models.TruncateDay(*end)
	}
	return ds.Clamp(dataset.DateRange{Start: from, End: to}), nil
}

// Summarize filters the dataset to r and recomputes every summary. The
// season summary is always built from the whole dataset.
func (s *DashboardService) Summarize(ctx context.Context, r dataset.DateRange) (*Summaries, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	if r.Start.After(r.End) {
		return nil, dataset.ErrInvalidRange
	}

	r = ds.Clamp(r)
	filtered := ds.Filter(r)
	s.metrics.FilteredRecords.Observe(float64(len(filtered)))

	out := &Summaries{Range: r, Records: len(filtered)}

	timer := s.metrics.SummaryTimer("daily")
	out.Daily = DailyRentals(filtered)
	timer.ObserveDuration()

	timer = s.metrics.SummaryTimer("hourly")
	out.Hourly = RentalsByHour(filtered)
	timer.ObserveDuration()

	timer = s.metrics.SummaryTimer("season")
	out.Season = RentalsBySeason(ds.Records())
	timer.ObserveDuration()

	timer = s.metrics.SummaryTimer("weather")
	out.Weather = RentalsByWeather(filtered)
	timer.ObserveDuration()

	timer = s.metrics.SummaryTimer("holiday")
	out.Holiday = RentalsByWorkingDay(filtered)
	timer.ObserveDuration()

	out.TotalDays, out.TotalRents = Totals(out.Daily)

	s.logger.Debug(ctx, "[SUMMARY] Computed dashboard summaries", logging.Fields{
		"range":       r.String(),
		"records":     len(filtered),
		"total_days":  out.TotalDays,
		"total_rents": out.TotalRents,
	})

	return out, nil
}
