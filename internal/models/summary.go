package models

import "time"

// DailySummary is one calendar day of the daily summary. Day and DailyUsers
// are nil for a day inside the range that has no records.
type DailySummary struct {
	Date       time.Time `json:"date"`
	Day        *float64  `json:"day"`
	Casual     int       `json:"casual"`
	Registered int       `json:"registered"`
	DailyUsers *float64  `json:"daily_users"`
}

// HourlySummary is the mean hourly total for one hour of the day.
type HourlySummary struct {
	Hour      int     `json:"hr"`
	MeanCount float64 `json:"cnt_hourly"`
	Records   int     `json:"records"`
}

// CategorySummary is the mean daily total for one season, weather situation
// or working-day flag.
type CategorySummary struct {
	Code      int     `json:"code"`
	Label     string  `json:"label"`
	MeanDaily float64 `json:"cnt_daily"`
	Records   int     `json:"records"`
}
