package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(date time.Time, hour int, season models.Season, weather models.Weather, working models.DayKind, casual, registered, daily int) models.RentalRecord {
	return models.RentalRecord{
		Date:        date,
		Weekday:     int(date.Weekday()),
		Hour:        hour,
		Season:      season,
		Weather:     weather,
		WorkingDay:  working,
		Casual:      casual,
		Registered:  registered,
		HourlyTotal: casual + registered,
		DailyTotal:  daily,
	}
}

// fixture spans 2011-01-01..2011-01-05 with 2011-01-04 missing.
func fixture() []models.RentalRecord {
	return []models.RentalRecord{
		rec(day(2011, 1, 1), 0, 1, 1, 0, 3, 13, 100),
		rec(day(2011, 1, 1), 1, 1, 2, 0, 8, 32, 100),
		rec(day(2011, 1, 2), 0, 1, 2, 0, 5, 10, 80),
		rec(day(2011, 1, 2), 1, 1, 3, 0, 1, 4, 80),
		rec(day(2011, 1, 3), 0, 2, 1, 1, 2, 20, 300),
		rec(day(2011, 1, 3), 8, 2, 1, 1, 10, 200, 300),
		rec(day(2011, 1, 5), 8, 3, 1, 1, 20, 180, 400),
	}
}

func TestDailyRentals_TwoDayExample(t *testing.T) {
	records := []models.RentalRecord{
		rec(day(2011, 1, 1), 0, 1, 1, 0, 10, 20, 985),
		rec(day(2011, 1, 2), 0, 1, 1, 0, 5, 15, 801),
	}

	daily := DailyRentals(records)
	require.Len(t, daily, 2)

	assert.Equal(t, day(2011, 1, 1), daily[0].Date)
	assert.Equal(t, 10, daily[0].Casual)
	assert.Equal(t, 20, daily[0].Registered)
	require.NotNil(t, daily[0].DailyUsers)
	assert.Equal(t, 985.0, *daily[0].DailyUsers)

	assert.Equal(t, 5, daily[1].Casual)
	assert.Equal(t, 15, daily[1].Registered)
	require.NotNil(t, daily[1].DailyUsers)
	assert.Equal(t, 801.0, *daily[1].DailyUsers)

	days, rents := Totals(daily)
	assert.Equal(t, 2, days)
	assert.Equal(t, 985+801, rents)
}

func TestDailyRentals_ResamplesGaps(t *testing.T) {
	records := fixture()
	daily := DailyRentals(records)

	// 2011-01-01..2011-01-05 inclusive
	require.Len(t, daily, 5)
	for i, row := range daily {
		assert.Equal(t, day(2011, 1, 1+i), row.Date, "ascending by date")
	}

	gap := daily[3]
	assert.Equal(t, day(2011, 1, 4), gap.Date)
	assert.Nil(t, gap.Day)
	assert.Nil(t, gap.DailyUsers)
	assert.Zero(t, gap.Casual)
	assert.Zero(t, gap.Registered)

	// per-day casual+registered equals the sum over that day's records
	sums := make(map[time.Time]int)
	for _, r := range records {
		sums[r.Day()] += r.Casual + r.Registered
	}
	for _, row := range daily {
		assert.Equal(t, sums[row.Date], row.Casual+row.Registered, row.Date.Format(models.DateLayout))
	}

	days, rents := Totals(daily)
	assert.Equal(t, 5, days)
	assert.Equal(t, 100+80+300+400, rents)
}

func TestDailyRentals_WeekdayMedian(t *testing.T) {
	records := []models.RentalRecord{
		{Date: day(2011, 1, 1), Weekday: 6, DailyTotal: 10},
		{Date: day(2011, 1, 1), Weekday: 6, DailyTotal: 10},
		{Date: day(2011, 1, 2), Weekday: 0, DailyTotal: 4},
		{Date: day(2011, 1, 2), Weekday: 1, DailyTotal: 6},
	}
	daily := DailyRentals(records)
	require.Len(t, daily, 2)
	require.NotNil(t, daily[0].Day)
	assert.Equal(t, 6.0, *daily[0].Day)
	// malformed input: median of {0,1}
	assert.Equal(t, 0.5, *daily[1].Day)
	assert.Equal(t, 5.0, *daily[1].DailyUsers)
}

func TestDailyRentals_Unsorted(t *testing.T) {
	records := fixture()
	reversed := make([]models.RentalRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}
	assert.Equal(t, DailyRentals(records), DailyRentals(reversed))
}

func TestRentalsByHour(t *testing.T) {
	hourly := RentalsByHour(fixture())

	require.Len(t, hourly, 3)
	// hour 8: (210+200)/2=205, hour 0: (16+15+22)/3≈17.67, hour 1: (40+5)/2=22.5
	assert.Equal(t, 8, hourly[0].Hour)
	assert.InDelta(t, 205.0, hourly[0].MeanCount, 1e-9)
	assert.Equal(t, 1, hourly[1].Hour)
	assert.InDelta(t, 22.5, hourly[1].MeanCount, 1e-9)
	assert.Equal(t, 0, hourly[2].Hour)
	assert.InDelta(t, 53.0/3.0, hourly[2].MeanCount, 1e-9)
	assert.Equal(t, 3, hourly[2].Records)
}

func TestRentalsByHour_AtMost24Rows(t *testing.T) {
	var records []models.RentalRecord
	for d := 1; d <= 10; d++ {
		for h := 0; h < 24; h++ {
			records = append(records, rec(day(2011, 2, d), h, 1, 1, 1, h, d, 50))
		}
	}
	hourly := RentalsByHour(records)
	assert.Len(t, hourly, 24)

	seen := make(map[int]bool)
	for i, row := range hourly {
		assert.False(t, seen[row.Hour], "duplicate hour %d", row.Hour)
		seen[row.Hour] = true
		if i > 0 {
			assert.GreaterOrEqual(t, hourly[i-1].MeanCount, row.MeanCount)
		}
	}
}

func TestRentalsBySeason_IgnoresFilter(t *testing.T) {
	ds := dataset.New(fixture(), "memory")
	full := RentalsBySeason(ds.Records())

	require.Len(t, full, 3)
	assert.Equal(t, "Fall", full[0].Label)
	assert.Equal(t, 400.0, full[0].MeanDaily)
	assert.Equal(t, "Summer", full[1].Label)
	assert.Equal(t, "Spring", full[2].Label)
	assert.Equal(t, 90.0, full[2].MeanDaily)

	// the service always feeds the unfiltered table; a narrow filter must not
	// change the seasonal view when computed the same way
	svc := newTestService(t, ds)
	narrow, err := dataset.NewDateRange(day(2011, 1, 1), day(2011, 1, 1))
	require.NoError(t, err)
	wide, err := dataset.NewDateRange(day(2011, 1, 1), day(2011, 1, 5))
	require.NoError(t, err)

	a, err := svc.Summarize(testContext(), narrow)
	require.NoError(t, err)
	b, err := svc.Summarize(testContext(), wide)
	require.NoError(t, err)
	assert.Equal(t, full, a.Season)
	assert.Equal(t, a.Season, b.Season)
}

func TestRentalsByWeather_AbsentCodesOmitted(t *testing.T) {
	all := RentalsByWeather(fixture())
	require.Len(t, all, 3)
	// Clear 275, Mist 90, Light Rain 80
	assert.Equal(t, []string{"Clear", "Mist", "Light Rain"}, labels(all))

	// only the first day: Clear and Mist
	firstDay := fixture()[:2]
	sub := RentalsByWeather(firstDay)
	require.Len(t, sub, 2)
	for _, row := range sub {
		assert.NotEqual(t, "Light Rain", row.Label)
		assert.NotZero(t, row.Records)
	}
}

func TestRentalsByWorkingDay(t *testing.T) {
	rows := RentalsByWorkingDay(fixture())
	require.Len(t, rows, 2)
	assert.Equal(t, "Workingday", rows[0].Label)
	assert.Equal(t, 1, rows[0].Code)
	assert.InDelta(t, (300.0+300.0+400.0)/3.0, rows[0].MeanDaily, 1e-9)
	assert.Equal(t, "Holiday", rows[1].Label)
	assert.Equal(t, 90.0, rows[1].MeanDaily)

	holidaysOnly := RentalsByWorkingDay(fixture()[:4])
	require.Len(t, holidaysOnly, 1)
	assert.Equal(t, "Holiday", holidaysOnly[0].Label)
}

func TestCategoryAggregators_UnknownCodes(t *testing.T) {
	records := []models.RentalRecord{
		rec(day(2011, 1, 1), 0, 7, 9, 2, 1, 1, 10),
		rec(day(2011, 1, 1), 1, 1, 1, 1, 1, 1, 5),
	}

	seasons := RentalsBySeason(records)
	require.Len(t, seasons, 2)
	assert.Equal(t, "Unknown(7)", seasons[0].Label)
	assert.Equal(t, 7, seasons[0].Code)

	weather := RentalsByWeather(records)
	assert.Equal(t, "Unknown(9)", weather[0].Label)

	holiday := RentalsByWorkingDay(records)
	assert.Equal(t, "Unknown(2)", holiday[0].Label)
	for _, row := range holiday {
		assert.NotEmpty(t, row.Label)
	}
}

func TestCategoryAggregators_TiesOrderedByCode(t *testing.T) {
	records := []models.RentalRecord{
		rec(day(2011, 1, 1), 0, 4, 3, 1, 0, 0, 50),
		rec(day(2011, 1, 1), 1, 2, 1, 0, 0, 0, 50),
	}
	rows := RentalsBySeason(records)
	require.Len(t, rows, 2)
	assert.Equal(t, "Summer", rows[0].Label)
	assert.Equal(t, "Winter", rows[1].Label)
}

func TestAggregators_EmptyInput(t *testing.T) {
	assert.Empty(t, DailyRentals(nil))
	assert.NotNil(t, DailyRentals(nil))
	assert.Empty(t, RentalsByHour(nil))
	assert.Empty(t, RentalsBySeason(nil))
	assert.Empty(t, RentalsByWeather([]models.RentalRecord{}))
	assert.Empty(t, RentalsByWorkingDay(nil))

	days, rents := Totals(nil)
	assert.Zero(t, days)
	assert.Zero(t, rents)
}

func TestAggregators_Idempotent(t *testing.T) {
	records := fixture()
	assert.Equal(t, DailyRentals(records), DailyRentals(records))
	assert.Equal(t, RentalsByHour(records), RentalsByHour(records))
	assert.Equal(t, RentalsBySeason(records), RentalsBySeason(records))
	assert.Equal(t, RentalsByWeather(records), RentalsByWeather(records))
	assert.Equal(t, RentalsByWorkingDay(records), RentalsByWorkingDay(records))
	assert.Equal(t, fixture(), records, "input untouched")
}

func TestTotals_Truncates(t *testing.T) {
	a, b := 10.6, 0.6
	days, rents := Totals([]models.DailySummary{
		{Date: day(2011, 1, 1), DailyUsers: &a},
		{Date: day(2011, 1, 2), DailyUsers: &b},
		{Date: day(2011, 1, 3)},
	})
	assert.Equal(t, 3, days)
	assert.Equal(t, 11, rents)
}

func labels(rows []models.CategorySummary) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}
