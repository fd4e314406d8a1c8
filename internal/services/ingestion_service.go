package services

import (
	"context"
	"fmt"
	"time"

	"bike-dashboard/internal/repository"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// IngestionService copies rental records from a source into the database
type IngestionService struct {
	repo    repository.RentalRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Source            string
	TotalRecords      int
	SuccessfulRecords int
	Batches           int
	Deleted           int64
	Duration          time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.RentalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Ingest loads every record from source and writes it in batches of
// batchSize. A failed batch stops the run; batches already committed stay
// in place. With replace set, the existing rows are swapped for the source
// in a single transaction instead, so a failure leaves the table as it was.
func (s *IngestionService) Ingest(ctx context.Context, source repository.RecordSource, batchSize int, replace bool) (*IngestionResult, error) {
	startTime := time.Now()
	if batchSize <= 0 {
		batchSize = 1000
	}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"source":     source.Name(),
		"batch_size": batchSize,
		"replace":    replace,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{Source: source.Name()}

	records, err := source.LoadRecords(ctx)
	if err != nil {
		s.metrics.RecordIngestionError("load_error")
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	result.TotalRecords = len(records)

	s.logger.Info(ctx, "[INGEST_LOADED] Records loaded from source", logging.Fields{
		"record_count": len(records),
		"stage":        "LOAD",
	})

	if replace {
		deleted, err := s.repo.ReplaceRecords(ctx, records)
		if err != nil {
			s.metrics.RecordIngestionError("replace_error")
			s.logger.Error(ctx, "[INGEST_REPLACE_ERROR] Replace failed, existing records kept", logging.Fields{
				"record_count": len(records),
				"stage":        "REPLACE",
			}, err)
			return result, fmt.Errorf("failed to replace records: %w", err)
		}
		result.Deleted = deleted
		result.SuccessfulRecords = len(records)
		result.Batches = 1
		return s.complete(ctx, result, startTime), nil
	}

	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := s.repo.CreateRecordsBatch(ctx, batch); err != nil {
			s.metrics.RecordIngestionError("batch_error")
			s.logger.Error(ctx, "[INGEST_BATCH_ERROR] Batch insert failed", logging.Fields{
				"batch_start": start,
				"batch_size":  len(batch),
				"stage":       "BATCH",
			}, err)
			return result, fmt.Errorf("failed to insert batch starting at record %d: %w", start, err)
		}

		result.SuccessfulRecords += len(batch)
		result.Batches++
	}

	return s.complete(ctx, result, startTime), nil
}

func (s *IngestionService) complete(ctx context.Context, result *IngestionResult, startTime time.Time) *IngestionResult {
	result.Duration = time.Since(startTime)

	fields := logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"batches":            result.Batches,
		"deleted":            result.Deleted,
		"duration_seconds":   result.Duration.Seconds(),
		"stage":              "COMPLETE",
	}
	if secs := result.Duration.Seconds(); secs > 0 {
		fields["records_per_second"] = float64(result.SuccessfulRecords) / secs
	}
	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", fields)

	return result
}
