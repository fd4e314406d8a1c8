package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bike-dashboard/internal/config"
	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/models"
	"bike-dashboard/internal/presenter"
	"bike-dashboard/internal/repository"
	"bike-dashboard/internal/services"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

const rule = "════════════════════════════════════════════════════════════════"

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	file := flag.String("file", cfg.Data.Path, "Delimited rental data file")
	startStr := flag.String("start", "", "First day of the range (YYYY-MM-DD), defaults to the first day in the file")
	endStr := flag.String("end", "", "Last day of the range (YYYY-MM-DD), defaults to the last day in the file")
	flag.Parse()

	start, err := parseDay(*startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -start: %v\n", err)
		os.Exit(2)
	}
	end, err := parseDay(*endStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -end: %v\n", err)
		os.Exit(2)
	}

	// progress goes to stderr so stdout holds only the report
	logger := logging.NewStructuredLogger("bike-report", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	ctx := context.Background()

	source := repository.NewCSVSource(*file, cfg.Data.DelimiterRune(), logger)
	records, err := source.LoadRecords(ctx)
	if err != nil {
		logger.Fatal(ctx, "[REPORT_ERROR] Failed to load rental data", logging.Fields{"file": *file}, err)
	}

	svc := services.NewDashboardService(
		dataset.NewStore(dataset.New(records, source.Name())),
		logger,
		metrics.NewCollector("bike_report", prometheus.NewRegistry()),
	)

	rng, err := svc.Resolve(ctx, start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid range: %v\n", err)
		os.Exit(2)
	}
	s, err := svc.Summarize(ctx, rng)
	if err != nil {
		logger.Fatal(ctx, "[REPORT_ERROR] Failed to summarize", logging.Fields{"range": rng.String()}, err)
	}

	view := presenter.New(presenter.Options{Title: cfg.Dashboard.Title})

	fmt.Println(rule)
	fmt.Println(strings.ToUpper(cfg.Dashboard.Title))
	fmt.Println(rule)
	fmt.Printf("File:          %s\n", *file)
	fmt.Printf("Range:         %s\n", rng.String())
	fmt.Printf("Records:       %d\n", s.Records)
	fmt.Printf("Total Days:    %s\n", view.FormatCount(s.TotalDays))
	fmt.Printf("Total Rents:   %s\n", view.FormatCount(s.TotalRents))
	fmt.Println()

	section("TOTAL RENTS BY DATE")
	fmt.Printf("%-12s %7s %10s %12s %12s\n", "date", "day", "casual", "registered", "daily_users")
	for _, d := range s.Daily {
		fmt.Printf("%-12s %7s %10d %12d %12s\n",
			d.Date.Format(models.DateLayout), optional(d.Day, "%.1f"), d.Casual, d.Registered, optional(d.DailyUsers, "%.0f"))
	}

	section("AVERAGE DAILY RENTS BY HOUR")
	fmt.Printf("%-4s %12s %8s\n", "hr", "cnt_hourly", "records")
	for _, h := range s.Hourly {
		fmt.Printf("%-4d %12.2f %8d\n", h.Hour, h.MeanCount, h.Records)
	}

	categories("RENTS BY WEATHERS", s.Weather)
	categories("RENTS BY SEASONS (ALL DATES)", s.Season)
	categories("RENTS BY HOLIDAY", s.Holiday)

	fmt.Println()
	fmt.Println(presenter.Caption)
}

func loadConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return &t, nil
}

func section(title string) {
	fmt.Println(rule)
	fmt.Println(title)
	fmt.Println(rule)
}

func categories(title string, rows []models.CategorySummary) {
	section(title)
	if len(rows) == 0 {
		fmt.Println("No data for the selected range")
		return
	}
	fmt.Printf("%-16s %12s %8s\n", "label", "cnt_daily", "records")
	for _, r := range rows {
		fmt.Printf("%-16s %12.2f %8d\n", r.Label, r.MeanDaily, r.Records)
	}
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
