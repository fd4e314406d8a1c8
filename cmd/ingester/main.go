package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"bike-dashboard/internal/config"
	"bike-dashboard/internal/repository"
	"bike-dashboard/internal/services"
	"bike-dashboard/pkg/database"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse command-line flags
	file := flag.String("file", cfg.Data.Path, "Delimited rental data file")
	delimiter := flag.String("delimiter", cfg.Data.Delimiter, "Field delimiter")
	batchSize := flag.Int("batch-size", 1000, "Number of records to write in each batch")
	replace := flag.Bool("replace", false, "Replace existing records in a single transaction")
	flag.Parse()

	cfg.Data.Path = *file
	cfg.Data.Delimiter = *delimiter
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("bike-ingester", version, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[INGESTER_START] Starting rental data ingestion", logging.Fields{
		"version":    version,
		"file":       *file,
		"batch_size": *batchSize,
		"replace":    *replace,
	})

	metricsCollector := metrics.NewCollector("bike_ingester", prometheus.DefaultRegisterer)

	db, err := database.NewPostgresDB(cfg.Database.PoolConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	repo := repository.NewRentalRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(repo, logger, metricsCollector)

	source := repository.NewCSVSource(*file, cfg.Data.DelimiterRune(), logger)

	result, err := ingestionService.Ingest(ctx, source, *batchSize, *replace)
	if err != nil {
		fields := logging.Fields{"file": *file}
		if result != nil {
			fields["successful_records"] = result.SuccessfulRecords
		}
		logger.Error(ctx, "[INGESTION_ERROR] Ingestion failed", fields, err)
		db.Close()
		os.Exit(1)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("File:               %s\n", *file)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Batches:            %d\n", result.Batches)
	if *replace {
		fmt.Printf("Deleted Records:    %d\n", result.Deleted)
	}
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/secs)
	}

	if count, err := repo.CountRecords(ctx); err == nil {
		fmt.Printf("Rows in table:      %d\n", count)
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}
