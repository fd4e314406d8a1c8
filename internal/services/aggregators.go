package services

import (
	"sort"
	"time"

	"bike-dashboard/internal/models"
)

// The aggregators below are pure: they read their input slice and return a
// freshly built summary. Calling one twice on the same input yields equal
// tables.

// DailyRentals buckets records by calendar date across the span of the
// input, one row per day in ascending order. A day without records keeps
// zero sums and nil Day/DailyUsers.
func DailyRentals(records []models.RentalRecord) []models.DailySummary {
	if len(records) == 0 {
		return []models.DailySummary{}
	}

	type bucket struct {
		weekdays   []int
		casual     int
		registered int
		dailySum   float64
		n          int
	}

	buckets := make(map[time.Time]*bucket)
	first, last := records[0].Day(), records[0].Day()
	for _, r := range records {
		d := r.Day()
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
		b, ok := buckets[d]
		if !ok {
			b = &bucket{}
			buckets[d] = b
		}
		b.weekdays = append(b.weekdays, r.Weekday)
		b.casual += r.Casual
		b.registered += r.Registered
		b.dailySum += float64(r.DailyTotal)
		b.n++
	}

	out := make([]models.DailySummary, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		row := models.DailySummary{Date: d}
		if b, ok := buckets[d]; ok {
			weekday := median(b.weekdays)
			users := b.dailySum / float64(b.n)
			row.Day = &weekday
			row.Casual = b.casual
			row.Registered = b.registered
			row.DailyUsers = &users
		}
		out = append(out, row)
	}
	return out
}

// RentalsByHour averages the hourly total per hour of day, highest mean
// first.
func RentalsByHour(records []models.RentalRecord) []models.HourlySummary {
	groups := meanBy(records,
		func(r models.RentalRecord) int { return r.Hour },
		func(r models.RentalRecord) int { return r.HourlyTotal })

	out := make([]models.HourlySummary, len(groups))
	for i, g := range groups {
		out[i] = models.HourlySummary{Hour: g.key, MeanCount: g.mean, Records: g.n}
	}
	return out
}

// RentalsBySeason averages the daily total per season, highest mean first.
// Callers pass the unfiltered dataset.
func RentalsBySeason(records []models.RentalRecord) []models.CategorySummary {
	return categorize(records, func(r models.RentalRecord) (int, string) {
		return r.Season.Code(), r.Season.String()
	})
}

// RentalsByWeather averages the daily total per weather situation, highest
// mean first. Situations absent from records are absent from the result.
func RentalsByWeather(records []models.RentalRecord) []models.CategorySummary {
	return categorize(records, func(r models.RentalRecord) (int, string) {
		return r.Weather.Code(), r.Weather.String()
	})
}

// RentalsByWorkingDay averages the daily total for working days and
// holidays, highest mean first.
func RentalsByWorkingDay(records []models.RentalRecord) []models.CategorySummary {
	return categorize(records, func(r models.RentalRecord) (int, string) {
		return r.WorkingDay.Code(), r.WorkingDay.String()
	})
}

// Totals returns the Total Days and Total Rents metrics of a daily summary.
// Empty days count as days but add nothing to the rents; the rent sum is
// truncated to an integer.
func Totals(daily []models.DailySummary) (days int, rents int) {
	var sum float64
	for _, d := range daily {
		if d.DailyUsers != nil {
			sum += *d.DailyUsers
		}
	}
	return len(daily), int(sum)
}

func categorize(records []models.RentalRecord, key func(models.RentalRecord) (int, string)) []models.CategorySummary {
	labels := make(map[int]string)
	groups := meanBy(records,
		func(r models.RentalRecord) int {
			code, label := key(r)
			labels[code] = label
			return code
		},
		func(r models.RentalRecord) int { return r.DailyTotal })

	out := make([]models.CategorySummary, len(groups))
	for i, g := range groups {
		out[i] = models.CategorySummary{
			Code:      g.key,
			Label:     labels[g.key],
			MeanDaily: g.mean,
			Records:   g.n,
		}
	}
	return out
}

type meanGroup struct {
	key  int
	sum  float64
	n    int
	mean float64
}

// meanBy groups records by key, averages value per group and orders the
// groups by descending mean, ties by ascending key.
func meanBy(records []models.RentalRecord, key func(models.RentalRecord) int, value func(models.RentalRecord) int) []meanGroup {
	index := make(map[int]int)
	groups := make([]meanGroup, 0)

	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, meanGroup{key: k})
		}
		groups[i].sum += float64(value(r))
		groups[i].n++
	}

	for i := range groups {
		groups[i].mean = groups[i].sum / float64(groups[i].n)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].mean != groups[j].mean {
			return groups[i].mean > groups[j].mean
		}
		return groups[i].key < groups[j].key
	})
	return groups
}

func median(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
