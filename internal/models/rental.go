package models

import (
	"fmt"
	"strings"
	"time"
)

// RentalRecord is one hour-of-day observation of the rental dataset.
// Records are never modified after load.
type RentalRecord struct {
	Date        time.Time `json:"dteday" db:"dteday"`
	Weekday     int       `json:"weekday" db:"weekday"`
	Hour        int       `json:"hr" db:"hr"`
	Season      Season    `json:"season" db:"season"`
	Weather     Weather   `json:"weathersit" db:"weathersit"`
	WorkingDay  DayKind   `json:"workingday" db:"workingday"`
	Casual      int       `json:"casual" db:"casual"`
	Registered  int       `json:"registered" db:"registered"`
	HourlyTotal int       `json:"cnt_hourly" db:"cnt_hourly"`
	DailyTotal  int       `json:"cnt_daily" db:"cnt_daily"`
}

// Day returns the record's calendar date at UTC midnight.
func (r RentalRecord) Day() time.Time {
	return TruncateDay(r.Date)
}

// TruncateDay drops the clock part of t, keeping its calendar date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the layout used for dates on the wire and in query strings.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseRentalDate parses a dteday value. The clock part, if any, is dropped.
func ParseRentalDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return TruncateDay(t), nil
		}
	}
	return time.Time{}, &ValidationError{
		Field:   "dteday",
		Value:   value,
		Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value),
	}
}

func unknownLabel(code int) string {
	return fmt.Sprintf("Unknown(%d)", code)
}

// Season is the season code of a record.
type Season int

const (
	SeasonSpring Season = iota + 1
	SeasonSummer
	SeasonFall
	SeasonWinter
)

// Known reports whether s is one of the four defined seasons.
func (s Season) Known() bool {
	return s >= SeasonSpring && s <= SeasonWinter
}

// Code returns the raw season code.
func (s Season) Code() int { return int(s) }

func (s Season) String() string {
	switch s {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonFall:
		return "Fall"
	case SeasonWinter:
		return "Winter"
	default:
		return unknownLabel(int(s))
	}
}

// Weather is the weather situation code of a record.
type Weather int

const (
	WeatherClear Weather = iota + 1
	WeatherMist
	WeatherLightRain
	WeatherHeavyRain
)

// Known reports whether w is one of the four defined weather situations.
func (w Weather) Known() bool {
	return w >= WeatherClear && w <= WeatherHeavyRain
}

// Code returns the raw weather code.
func (w Weather) Code() int { return int(w) }

func (w Weather) String() string {
	switch w {
	case WeatherClear:
		return "Clear"
	case WeatherMist:
		return "Mist"
	case WeatherLightRain:
		return "Light Rain"
	case WeatherHeavyRain:
		return "Heavy Rain/Snow"
	default:
		return unknownLabel(int(w))
	}
}

// DayKind is the working-day flag of a record.
type DayKind int

const (
	Holiday    DayKind = 0
	Workingday DayKind = 1
)

// Known reports whether k is 0 or 1.
func (k DayKind) Known() bool {
	return k == Holiday || k == Workingday
}

// Code returns the raw working-day flag.
func (k DayKind) Code() int { return int(k) }

func (k DayKind) String() string {
	switch k {
	case Workingday:
		return "Workingday"
	case Holiday:
		return "Holiday"
	default:
		return unknownLabel(int(k))
	}
}

// ValidationError describes a value in the input that could not be loaded.
type ValidationError struct {
	Field   string
	Row     int
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return e.Message
}
