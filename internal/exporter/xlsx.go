// Package exporter writes dashboard summaries as a spreadsheet.
package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bike-dashboard/internal/models"
	"bike-dashboard/internal/services"
)

// Sheet names, in workbook order.
const (
	SheetDaily   = "Daily"
	SheetHourly  = "Hourly"
	SheetSeason  = "Season"
	SheetWeather = "Weather"
	SheetHoliday = "Holiday"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteWorkbook writes one sheet per summary table to w.
func WriteWorkbook(w io.Writer, s *services.Summaries) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDaily); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetHourly, SheetSeason, SheetWeather, SheetHoliday} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	daily := [][]interface{}{{"date", "day", "casual", "registered", "daily_users"}}
	for _, d := range s.Daily {
		daily = append(daily, []interface{}{
			d.Date.Format(models.DateLayout), optional(d.Day), d.Casual, d.Registered, optional(d.DailyUsers),
		})
	}

	hourly := [][]interface{}{{"hr", "cnt_hourly", "records"}}
	for _, h := range s.Hourly {
		hourly = append(hourly, []interface{}{h.Hour, h.MeanCount, h.Records})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetDaily, daily},
		{SheetHourly, hourly},
		{SheetSeason, categoryRows("season", s.Season)},
		{SheetWeather, categoryRows("weathersit", s.Weather)},
		{SheetHoliday, categoryRows("workingday", s.Holiday)},
	}

	for _, sheet := range sheets {
		for i, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", sheet.name, i+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func categoryRows(column string, rows []models.CategorySummary) [][]interface{} {
	out := [][]interface{}{{column, "code", "cnt_daily", "records"}}
	for _, r := range rows {
		out = append(out, []interface{}{r.Label, r.Code, r.MeanDaily, r.Records})
	}
	return out
}

// optional leaves the cell blank for a missing value.
func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
