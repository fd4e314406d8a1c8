package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

func TestConfig_ConnectionStrings(t *testing.T) {
	cfg := &Config{
		Host:     "db",
		Port:     5432,
		User:     "bikes",
		Password: "secret",
		Database: "rentals",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=bikes password=secret dbname=rentals sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bikes:secret@db:5432/rentals?sslmode=disable", cfg.URL())
}

func TestPostgresDB_WrapAndClose(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	db := Wrap(sqlx.NewDb(mockDB, "sqlmock"), nil, logging.Discard(), collector)

	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectExec("UPDATE rental_records").WillReturnResult(sqlmock.NewResult(0, 3))
	res, err := db.ExecContext(context.Background(), "touch", "UPDATE rental_records SET casual = casual")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.DBQueryDuration))

	db.reportPoolStats()
	assert.Equal(t, 3, testutil.CollectAndCount(collector.DBConnectionPool))

	mock.ExpectClose()
	require.NoError(t, db.Close())
	// a second Close is a no-op
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
