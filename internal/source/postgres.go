package source

import (
	"context"

	"energy-dashboard/internal/models"
	"energy-dashboard/internal/repository"
)

// PostgresLoader reads sources staged in the source_files table
type PostgresLoader struct {
	repo  repository.SourceRepository
	files map[models.SourceName]string
}

// NewPostgresLoader creates a loader that looks up files[name] through repo
func NewPostgresLoader(repo repository.SourceRepository, files map[models.SourceName]string) *PostgresLoader {
	return &PostgresLoader{repo: repo, files: files}
}

// Backend returns "postgres"
func (l *PostgresLoader) Backend() string {
	return "postgres"
}

// Load returns the staged content. A missing row wraps models.ErrSourceNotFound.
func (l *PostgresLoader) Load(ctx context.Context, name models.SourceName) ([]byte, error) {
	file, err := fileFor(l.files, name)
	if err != nil {
		return nil, err
	}

	row, err := l.repo.GetSourceFile(ctx, file)
	if err != nil {
		return nil, &models.FetchFailure{Source: name, URL: "postgres:source_files/" + file, Err: err}
	}

	return []byte(row.Content), nil
}

// HealthCheck pings the database behind the repository
func (l *PostgresLoader) HealthCheck(ctx context.Context) error {
	return l.repo.HealthCheck(ctx)
}
