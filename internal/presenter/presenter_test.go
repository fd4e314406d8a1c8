package presenter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/models"
	"bike-dashboard/internal/services"
)

func day(d int) time.Time {
	return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func sampleSummaries() *services.Summaries {
	return &services.Summaries{
		Range: dataset.DateRange{Start: day(1), End: day(3)},
		Daily: []models.DailySummary{
			{Date: day(1), Day: f(6), Casual: 10, Registered: 20, DailyUsers: f(985)},
			{Date: day(2)},
			{Date: day(3), Day: f(1), Casual: 5, Registered: 15, DailyUsers: f(1349)},
		},
		Hourly: []models.HourlySummary{
			{Hour: 17, MeanCount: 460},
			{Hour: 8, MeanCount: 359},
			{Hour: 0, MeanCount: 53},
		},
		Season: []models.CategorySummary{
			{Code: 3, Label: "Fall", MeanDaily: 5644},
			{Code: 2, Label: "Summer", MeanDaily: 4992},
			{Code: 1, Label: "Spring", MeanDaily: 2604},
		},
		Weather: []models.CategorySummary{
			{Code: 1, Label: "Clear", MeanDaily: 1000},
		},
		Holiday:    []models.CategorySummary{},
		TotalDays:  3,
		TotalRents: 2334,
	}
}

func TestParseSeriesOption(t *testing.T) {
	tests := []struct {
		input   string
		want    SeriesOption
		wantErr bool
	}{
		{input: "", want: SeriesCasual},
		{input: "casual", want: SeriesCasual},
		{input: "registered", want: SeriesRegistered},
		{input: "all", want: SeriesAll},
		{input: "All Users", want: SeriesAll},
		{input: "Registered Users", want: SeriesRegistered},
		{input: "everyone", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSeriesOption(tt.input)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrUnknownSeries), tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestSeriesLabels(t *testing.T) {
	var labels []string
	for _, o := range SeriesOptions() {
		labels = append(labels, o.Label())
	}
	assert.Equal(t, []string{"Casual Users", "Registered Users", "All Users"}, labels)
}

func TestHighlightColors(t *testing.T) {
	assert.Empty(t, HighlightColors(0))
	assert.Equal(t, []string{"#72BCD4"}, HighlightColors(1))
	assert.Equal(t, []string{"#72BCD4", "#D3D3D3", "#D3D3D3", "#D3D3D3"}, HighlightColors(4))
}

func TestBuild_Metrics(t *testing.T) {
	p := New(Options{})
	d := p.Build(sampleSummaries(), dataset.DateRange{Start: day(1), End: day(31)}, SeriesAll)

	assert.Equal(t, "Bike Renting Dashboard", d.Title)
	require.Len(t, d.Metrics, 2)
	assert.Equal(t, Metric{Label: "Total Days", Value: 3, Display: "3"}, d.Metrics[0])
	assert.Equal(t, Metric{Label: "Total Rents", Value: 2334, Display: "2,334"}, d.Metrics[1])
	assert.Equal(t, Caption, d.Caption)
	assert.Equal(t, day(31), d.Bounds.End)

	require.Len(t, d.Choices, 3)
	assert.True(t, d.Choices[2].Selected)
	assert.False(t, d.Choices[0].Selected)
}

func TestBuild_DailySeries(t *testing.T) {
	p := New(Options{})

	tests := []struct {
		option SeriesOption
		want   []*float64
	}{
		{option: SeriesCasual, want: []*float64{f(10), f(0), f(5)}},
		{option: SeriesRegistered, want: []*float64{f(20), f(0), f(15)}},
		{option: SeriesAll, want: []*float64{f(985), nil, f(1349)}},
	}

	for _, tt := range tests {
		t.Run(string(tt.option), func(t *testing.T) {
			chart := p.Build(sampleSummaries(), dataset.DateRange{}, tt.option).Daily
			require.Len(t, chart.Series, 1)

			s := chart.Series[0]
			assert.Equal(t, tt.option.Label(), s.Name)
			assert.Equal(t, LineColor, s.Color)
			require.Len(t, s.Data, 3)
			assert.Equal(t, "2011-01-02", s.Data[1].Label)
			for i, want := range tt.want {
				assert.Equal(t, want, s.Data[i].Value, "point %d", i)
			}
		})
	}
}

func TestBuild_HourlyOrder(t *testing.T) {
	labels := func(c ChartConfig) []string {
		out := make([]string, len(c.Series[0].Data))
		for i, pt := range c.Series[0].Data {
			out[i] = pt.Label
		}
		return out
	}

	byValue := New(Options{}).Build(sampleSummaries(), dataset.DateRange{}, SeriesCasual).Hourly
	assert.Equal(t, []string{"17", "8", "0"}, labels(byValue))

	s := sampleSummaries()
	byHour := New(Options{HourlyOrder: HourlyOrderHour}).Build(s, dataset.DateRange{}, SeriesCasual).Hourly
	assert.Equal(t, []string{"0", "8", "17"}, labels(byHour))
	assert.Equal(t, 17, s.Hourly[0].Hour, "summary left untouched")
}

func TestBuild_CategoryCharts(t *testing.T) {
	d := New(Options{Title: "Rentals"}).Build(sampleSummaries(), dataset.DateRange{}, SeriesCasual)
	assert.Equal(t, "Rentals", d.Title)

	season := d.Season
	assert.Equal(t, "Rents by Seasons", season.Title)
	assert.NotEmpty(t, season.Subtitle)
	assert.False(t, season.Empty)
	assert.Equal(t, []string{HighlightColor, MutedColor, MutedColor}, season.Series[0].Colors)
	assert.Equal(t, "Fall", season.Series[0].Data[0].Label)

	assert.Equal(t, []string{HighlightColor}, d.Weather.Series[0].Colors)
	assert.Empty(t, d.Weather.Subtitle)

	assert.True(t, d.Holiday.Empty)
	assert.Empty(t, d.Holiday.Series[0].Data)
}

func TestBuild_EmptyRange(t *testing.T) {
	s := &services.Summaries{
		Daily:   []models.DailySummary{},
		Hourly:  []models.HourlySummary{},
		Weather: []models.CategorySummary{},
		Holiday: []models.CategorySummary{},
		Season:  sampleSummaries().Season,
	}
	d := New(Options{}).Build(s, dataset.DateRange{}, SeriesCasual)

	assert.True(t, d.Daily.Empty)
	assert.True(t, d.Hourly.Empty)
	assert.True(t, d.Weather.Empty)
	assert.False(t, d.Season.Empty)
	assert.Equal(t, "0", d.Metrics[1].Display)
}
