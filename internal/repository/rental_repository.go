package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"bike-dashboard/internal/models"
	"bike-dashboard/pkg/database"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// RentalRepository provides data access for rental records
type RentalRepository interface {
	CreateRecordsBatch(ctx context.Context, records []models.RentalRecord) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]models.RentalRecord, error)
	CountRecords(ctx context.Context) (int, error)
	ReplaceRecords(ctx context.Context, records []models.RentalRecord) (int64, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines optional inclusive date bounds for listing records
type RecordFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

const upsertRecordQuery = `
		INSERT INTO rental_records (
			dteday, weekday, hr, season, weathersit, workingday,
			casual, registered, cnt_hourly, cnt_daily
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dteday, hr) DO UPDATE SET
			weekday = EXCLUDED.weekday,
			season = EXCLUDED.season,
			weathersit = EXCLUDED.weathersit,
			workingday = EXCLUDED.workingday,
			casual = EXCLUDED.casual,
			registered = EXCLUDED.registered,
			cnt_hourly = EXCLUDED.cnt_hourly,
			cnt_daily = EXCLUDED.cnt_daily
	`

// rentalRepository implements RentalRepository
type rentalRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRentalRepository creates a new rental repository
func NewRentalRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RentalRepository {
	return &rentalRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateRecordsBatch upserts records in a single transaction
func (r *rentalRepository) CreateRecordsBatch(ctx context.Context, records []models.RentalRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRecords(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))

	return nil
}

// ReplaceRecords deletes every stored record and inserts records in one
// transaction. On error the previous rows are left untouched.
func (r *rentalRepository) ReplaceRecords(ctx context.Context, records []models.RentalRecord) (int64, error) {
	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM rental_records")
	if err != nil {
		r.metrics.RecordDBError("delete_error")
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if err := insertRecords(ctx, tx, records); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionBatchSize.Observe(float64(len(records)))
	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))
	r.logger.Info(ctx, "[REPO_REPLACE] Rental records replaced", logging.Fields{
		"deleted":     deleted,
		"inserted":    len(records),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return deleted, nil
}

func insertRecords(ctx context.Context, tx *sqlx.Tx, records []models.RentalRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, upsertRecordQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Day(),
			rec.Weekday,
			rec.Hour,
			int(rec.Season),
			int(rec.Weather),
			int(rec.WorkingDay),
			rec.Casual,
			rec.Registered,
			rec.HourlyTotal,
			rec.DailyTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s hr %d: %w",
				rec.Day().Format(models.DateLayout), rec.Hour, err)
		}
	}
	return nil
}

// ListRecords retrieves rental records ordered by date and hour
func (r *rentalRepository) ListRecords(ctx context.Context, filter RecordFilter) ([]models.RentalRecord, error) {
	query := `
		SELECT dteday, weekday, hr, season, weathersit, workingday,
		       casual, registered, cnt_hourly, cnt_daily
		FROM rental_records
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND dteday >= $%d", argNum)
		args = append(args, models.TruncateDay(*filter.StartDate))
		argNum++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND dteday <= $%d", argNum)
		args = append(args, models.TruncateDay(*filter.EndDate))
	}

	query += " ORDER BY dteday, hr"

	var records []models.RentalRecord
	if err := r.db.SelectContext(ctx, "list_records", &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	for i := range records {
		records[i].Date = models.TruncateDay(records[i].Date)
	}

	return records, nil
}

// CountRecords returns the number of stored records
func (r *rentalRepository) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, "count_records", &count, "SELECT COUNT(*) FROM rental_records")
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// HealthCheck performs a repository health check
func (r *rentalRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
