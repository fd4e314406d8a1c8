package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"bike-dashboard/internal/config"
	"bike-dashboard/migrations"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of migrations to apply (0 = all)")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open embedded migrations: %v\n", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.Database.PoolConfig().URL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	fmt.Printf("Running migrations %s against %s:%d/%s\n",
		*direction, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	switch {
	case *steps > 0 && *direction == "up":
		err = m.Steps(*steps)
	case *steps > 0:
		err = m.Steps(-*steps)
	case *direction == "up":
		err = m.Up()
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("Migration completed successfully, schema is empty")
	case err != nil:
		fmt.Fprintf(os.Stderr, "Failed to read schema version: %v\n", err)
		os.Exit(1)
	default:
		fmt.Printf("Migration completed successfully, version %d (dirty=%t)\n", version, dirty)
	}
}
