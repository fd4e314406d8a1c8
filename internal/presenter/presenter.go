// Package presenter turns dashboard summaries into chart-ready views.
package presenter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/models"
	"bike-dashboard/internal/services"
)

// Chart colours.
const (
	HighlightColor = "#72BCD4"
	MutedColor     = "#D3D3D3"
	LineColor      = "#90CAF9"
)

// Caption is printed under every rendering of the dashboard.
const Caption = "Copyright (c) Ridhow 2023"

// Hourly chart orderings.
const (
	HourlyOrderValue = "value"
	HourlyOrderHour  = "hour"
)

// ErrUnknownSeries is returned for a series name outside SeriesOptions.
var ErrUnknownSeries = errors.New("unknown series option")

// SeriesOption selects the line plotted on the daily chart.
type SeriesOption string

const (
	SeriesCasual     SeriesOption = "casual"
	SeriesRegistered SeriesOption = "registered"
	SeriesAll        SeriesOption = "all"
)

// SeriesOptions lists the choices in display order. The first is the default.
func SeriesOptions() []SeriesOption {
	return []SeriesOption{SeriesCasual, SeriesRegistered, SeriesAll}
}

// Label is the text shown in the series picker.
func (o SeriesOption) Label() string {
	switch o {
	case SeriesCasual:
		return "Casual Users"
	case SeriesRegistered:
		return "Registered Users"
	case SeriesAll:
		return "All Users"
	default:
		return string(o)
	}
}

// ParseSeriesOption accepts an option name or its label. An empty string
// selects the default.
func ParseSeriesOption(s string) (SeriesOption, error) {
	if s == "" {
		return SeriesOptions()[0], nil
	}
	for _, o := range SeriesOptions() {
		if s == string(o) || s == o.Label() {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSeries, s)
}

// value picks the plotted value of one daily row.
func (o SeriesOption) value(d models.DailySummary) *float64 {
	switch o {
	case SeriesRegistered:
		v := float64(d.Registered)
		return &v
	case SeriesAll:
		return d.DailyUsers
	default:
		v := float64(d.Casual)
		return &v
	}
}

// Metric is a headline number.
type Metric struct {
	Label   string `json:"label"`
	Value   int    `json:"value"`
	Display string `json:"display"`
}

// ChartPoint is one category or date on a chart. A nil Value is a gap.
type ChartPoint struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// ChartSeries is one plotted series. Colors, when set, holds one colour per
// point.
type ChartSeries struct {
	Name   string       `json:"name"`
	Data   []ChartPoint `json:"data"`
	Color  string       `json:"color,omitempty"`
	Colors []string     `json:"colors,omitempty"`
}

// ChartConfig describes one chart of the dashboard.
type ChartConfig struct {
	ID        string        `json:"id"`
	ChartType string        `json:"chartType"`
	Title     string        `json:"title"`
	Subtitle  string        `json:"subtitle,omitempty"`
	XAxis     string        `json:"xAxis,omitempty"`
	Series    []ChartSeries `json:"series"`
	Empty     bool          `json:"empty"`
}

// Choice is one entry of the series picker.
type Choice struct {
	Value    SeriesOption `json:"value"`
	Label    string       `json:"label"`
	Selected bool         `json:"selected"`
}

// Dashboard is the complete view for one request.
type Dashboard struct {
	Title   string            `json:"title"`
	Range   dataset.DateRange `json:"range"`
	Bounds  dataset.DateRange `json:"bounds"`
	Series  SeriesOption      `json:"series"`
	Choices []Choice          `json:"choices"`
	Metrics []Metric          `json:"metrics"`
	Daily   ChartConfig       `json:"daily"`
	Hourly  ChartConfig       `json:"hourly"`
	Weather ChartConfig       `json:"weather"`
	Season  ChartConfig       `json:"season"`
	Holiday ChartConfig       `json:"holiday"`
	Caption string            `json:"caption"`
}

// Options configures a Presenter.
type Options struct {
	Title       string
	HourlyOrder string
}

// Presenter builds dashboard views. It holds no per-request state.
type Presenter struct {
	opts    Options
	printer *message.Printer
}

// New creates a presenter. Unset options take their defaults.
func New(opts Options) *Presenter {
	if opts.Title == "" {
		opts.Title = "Bike Renting Dashboard"
	}
	if opts.HourlyOrder != HourlyOrderHour {
		opts.HourlyOrder = HourlyOrderValue
	}
	return &Presenter{
		opts:    opts,
		printer: message.NewPrinter(language.English),
	}
}

// FormatCount renders n with thousands separators.
func (p *Presenter) FormatCount(n int) string {
	return p.printer.Sprintf("%d", n)
}

// Build assembles the dashboard for summaries s. bounds is the span of the
// whole dataset, used to limit the date pickers.
func (p *Presenter) Build(s *services.Summaries, bounds dataset.DateRange, series SeriesOption) *Dashboard {
	choices := make([]Choice, 0, 3)
	for _, o := range SeriesOptions() {
		choices = append(choices, Choice{Value: o, Label: o.Label(), Selected: o == series})
	}

	return &Dashboard{
		Title:   p.opts.Title,
		Range:   s.Range,
		Bounds:  bounds,
		Series:  series,
		Choices: choices,
		Metrics: []Metric{
			{Label: "Total Days", Value: s.TotalDays, Display: p.FormatCount(s.TotalDays)},
			{Label: "Total Rents", Value: s.TotalRents, Display: p.FormatCount(s.TotalRents)},
		},
		Daily:   p.dailyChart(s.Daily, series),
		Hourly:  p.hourlyChart(s.Hourly),
		Weather: categoryChart("weather", "Rents by Weathers", "", s.Weather),
		Season:  categoryChart("season", "Rents by Seasons", "All dates (ignores the selected range)", s.Season),
		Holiday: categoryChart("holiday", "Rents by Holiday", "", s.Holiday),
		Caption: Caption,
	}
}

func (p *Presenter) dailyChart(daily []models.DailySummary, series SeriesOption) ChartConfig {
	points := make([]ChartPoint, len(daily))
	for i, d := range daily {
		points[i] = ChartPoint{Label: d.Date.Format(models.DateLayout), Value: series.value(d)}
	}
	return ChartConfig{
		ID:        "daily",
		ChartType: "line",
		Title:     "Total Rents by Date",
		XAxis:     "Date",
		Series:    []ChartSeries{{Name: series.Label(), Data: points, Color: LineColor}},
		Empty:     len(daily) == 0,
	}
}

func (p *Presenter) hourlyChart(hourly []models.HourlySummary) ChartConfig {
	rows := make([]models.HourlySummary, len(hourly))
	copy(rows, hourly)
	if p.opts.HourlyOrder == HourlyOrderHour {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Hour < rows[j].Hour })
	}

	points := make([]ChartPoint, len(rows))
	for i, h := range rows {
		v := h.MeanCount
		points[i] = ChartPoint{Label: strconv.Itoa(h.Hour), Value: &v}
	}
	return ChartConfig{
		ID:        "hourly",
		ChartType: "bar",
		Title:     "Average Daily Rents by Hour",
		XAxis:     "Hour",
		Series:    []ChartSeries{{Name: "Average rents", Data: points, Color: HighlightColor}},
		Empty:     len(rows) == 0,
	}
}

// categoryChart expects rows already sorted by descending mean; the first
// bar is highlighted.
func categoryChart(id, title, subtitle string, rows []models.CategorySummary) ChartConfig {
	points := make([]ChartPoint, len(rows))
	for i, r := range rows {
		v := r.MeanDaily
		points[i] = ChartPoint{Label: r.Label, Value: &v}
	}
	return ChartConfig{
		ID:        id,
		ChartType: "bar",
		Title:     title,
		Subtitle:  subtitle,
		Series: []ChartSeries{{
			Name:   "Average daily rents",
			Data:   points,
			Colors: HighlightColors(len(rows)),
		}},
		Empty: len(rows) == 0,
	}
}

// HighlightColors returns n bar colours: the first highlighted, the rest
// muted.
func HighlightColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = MutedColor
	}
	if n > 0 {
		colors[0] = HighlightColor
	}
	return colors
}
