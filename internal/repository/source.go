package repository

import (
	"context"
	"fmt"
	"time"

	"bike-dashboard/internal/models"
	"bike-dashboard/pkg/logging"
)

// RecordSource loads the full set of rental records from somewhere.
type RecordSource interface {
	Name() string
	LoadRecords(ctx context.Context) ([]models.RentalRecord, error)
}

// PostgresSource loads records from the rental_records table
type PostgresSource struct {
	repo   RentalRepository
	logger *logging.StructuredLogger
}

// NewPostgresSource creates a source backed by repo
func NewPostgresSource(repo RentalRepository, logger *logging.StructuredLogger) *PostgresSource {
	return &PostgresSource{repo: repo, logger: logger}
}

// Name identifies the source in logs and metrics
func (s *PostgresSource) Name() string { return "postgres" }

// LoadRecords lists every stored record. An empty table is a NotFoundError.
func (s *PostgresSource) LoadRecords(ctx context.Context) ([]models.RentalRecord, error) {
	start := time.Now()

	records, err := s.repo.ListRecords(ctx, RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load records from database: %w", err)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "rental_records", ID: "*"}
	}

	s.logger.Info(ctx, "[SOURCE_LOADED] Records loaded from database", logging.Fields{
		"records":     len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return records, nil
}
