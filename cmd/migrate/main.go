package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"energy-dashboard/internal/config"
	"energy-dashboard/internal/models"
	"energy-dashboard/internal/repository"
	"energy-dashboard/pkg/database"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

const migrationName = "001_create_source_files"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	migrationsDir := flag.String("migrations-dir", "migrations", "Directory holding the .sql migration files")
	seedDir := flag.String("seed-dir", "", "Upload the configured source CSVs from this directory after migrating up")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q: expected up or down\n", *direction)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("energy-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("energy_migrate")

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	migrationFile := migrationPath(*migrationsDir, *direction)
	content, err := os.ReadFile(migrationFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running migration: %s\n", migrationFile)

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, string(content)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")

	if *seedDir == "" || *direction != "up" {
		return
	}

	repo := repository.NewSourceRepository(db, logger)
	seeded, err := seed(ctx, repo, *seedDir, cfg.FileNames())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to seed sources: %v\n", err)
		os.Exit(1)
	}

	for _, name := range seeded {
		fmt.Printf("Seeded %s\n", name)
	}
}

func migrationPath(dir, direction string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.sql", migrationName, direction))
}

// seed uploads each configured source file from dir, in merge order.
// It stops at the first file that cannot be read or stored.
func seed(ctx context.Context, repo repository.SourceRepository, dir string, files map[models.SourceName]string) ([]string, error) {
	seeded := make([]string, 0, len(files))
	for _, name := range models.AllSources {
		file, ok := files[name]
		if !ok || file == "" {
			return seeded, fmt.Errorf("no file configured for source %s", name)
		}

		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return seeded, fmt.Errorf("failed to read %s: %w", file, err)
		}

		if err := repo.UpsertSourceFile(ctx, file, content); err != nil {
			return seeded, fmt.Errorf("failed to store %s: %w", file, err)
		}
		seeded = append(seeded, file)
	}
	return seeded, nil
}
