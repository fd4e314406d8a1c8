package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"bike-dashboard/internal/models"
	"bike-dashboard/pkg/logging"
)

// RequiredColumns are the columns a rental file must carry. Extra columns
// are ignored.
var RequiredColumns = []string{
	"dteday", "weekday", "hr", "season", "weathersit", "workingday",
	"casual", "registered", "cnt_hourly", "cnt_daily",
}

// CSVSource loads records from a delimited file
type CSVSource struct {
	path      string
	delimiter rune
	logger    *logging.StructuredLogger
}

// NewCSVSource creates a source reading path. A zero delimiter means comma.
func NewCSVSource(path string, delimiter rune, logger *logging.StructuredLogger) *CSVSource {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVSource{path: path, delimiter: delimiter, logger: logger}
}

// Name identifies the source in logs and metrics
func (s *CSVSource) Name() string { return "csv" }

// Path returns the file being read
func (s *CSVSource) Path() string { return s.path }

// LoadRecords reads and validates the whole file. Any bad cell fails the load.
func (s *CSVSource) LoadRecords(ctx context.Context) ([]models.RentalRecord, error) {
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	records, err := ParseRecords(f, s.delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	s.logger.Info(ctx, "[SOURCE_LOADED] Records loaded from file", logging.Fields{
		"path":        s.path,
		"records":     len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return records, nil
}

// ParseRecords decodes a delimited rental table with a header row.
func ParseRecords(r io.Reader, delimiter rune) ([]models.RentalRecord, error) {
	// a leading UTF-8 BOM would otherwise end up in the first column name
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(delimiter),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read table: %w", df.Err)
	}

	if err := checkColumns(df.Names()); err != nil {
		return nil, err
	}

	rows := df.Nrow()
	if rows == 0 {
		return nil, &models.ValidationError{Message: "file holds no data rows"}
	}

	ints := make(map[string][]int, len(RequiredColumns)-1)
	for _, name := range RequiredColumns[1:] {
		values, err := intColumn(df.Col(name))
		if err != nil {
			return nil, err
		}
		ints[name] = values
	}

	dates := df.Col("dteday").Records()
	records := make([]models.RentalRecord, rows)
	for i := 0; i < rows; i++ {
		date, err := models.ParseRentalDate(dates[i])
		if err != nil {
			if vErr, ok := err.(*models.ValidationError); ok {
				vErr.Row = i + 1
			}
			return nil, err
		}

		records[i] = models.RentalRecord{
			Date:        date,
			Weekday:     ints["weekday"][i],
			Hour:        ints["hr"][i],
			Season:      models.Season(ints["season"][i]),
			Weather:     models.Weather(ints["weathersit"][i]),
			WorkingDay:  models.DayKind(ints["workingday"][i]),
			Casual:      ints["casual"][i],
			Registered:  ints["registered"][i],
			HourlyTotal: ints["cnt_hourly"][i],
			DailyTotal:  ints["cnt_daily"][i],
		}
	}

	return records, nil
}

func checkColumns(names []string) error {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	var missing []string
	for _, want := range RequiredColumns {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return &models.ValidationError{
			Field:   strings.Join(missing, ","),
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// intColumn converts a string column. On failure the first offending cell
// is reported with its 1-based data row.
func intColumn(col series.Series) ([]int, error) {
	values, err := col.Int()
	if err == nil {
		return values, nil
	}

	for i, cell := range col.Records() {
		if _, convErr := strconv.Atoi(cell); convErr != nil {
			return nil, &models.ValidationError{
				Field:   col.Name,
				Row:     i + 1,
				Value:   cell,
				Message: fmt.Sprintf("column %s: invalid integer %q", col.Name, cell),
			}
		}
	}
	return nil, &models.ValidationError{Field: col.Name, Message: err.Error()}
}
