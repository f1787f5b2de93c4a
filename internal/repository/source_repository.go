package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
)

// SourceRepository provides access to raw source files staged in PostgreSQL
type SourceRepository interface {
	GetSourceFile(ctx context.Context, name string) (*SourceFile, error)
	UpsertSourceFile(ctx context.Context, name string, content []byte) error
	ListSourceFiles(ctx context.Context) ([]SourceFileInfo, error)
	HealthCheck(ctx context.Context) error
}

// SourceFile is one row of the source_files table
type SourceFile struct {
	Name      string    `db:"name"`
	Content   string    `db:"content"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SourceFileInfo describes a staged file without its content
type SourceFileInfo struct {
	Name      string    `db:"name"`
	SizeBytes int64     `db:"size_bytes"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Querier is the subset of *database.PostgresDB the repository needs
type Querier interface {
	ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error
	HealthCheck(ctx context.Context) error
}

type sourceRepository struct {
	db     Querier
	logger *logging.StructuredLogger
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db Querier, logger *logging.StructuredLogger) SourceRepository {
	return &sourceRepository{
		db:     db,
		logger: logger,
	}
}

// GetSourceFile returns the staged file called name
func (r *sourceRepository) GetSourceFile(ctx context.Context, name string) (*SourceFile, error) {
	query := `
		SELECT name, content, updated_at
		FROM source_files
		WHERE name = $1
	`

	var file SourceFile
	err := r.db.GetContext(ctx, "get_source_file", &file, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "source_file",
			ID:       name,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source file: %w", err)
	}

	return &file, nil
}

// UpsertSourceFile stores content under name, replacing any earlier version
func (r *sourceRepository) UpsertSourceFile(ctx context.Context, name string, content []byte) error {
	query := `
		INSERT INTO source_files (name, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, "upsert_source_file", query, name, string(content)); err != nil {
		return fmt.Errorf("failed to upsert source file: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_SOURCE] Source file stored", logging.Fields{
		"name":       name,
		"size_bytes": len(content),
	})

	return nil
}

// ListSourceFiles lists staged files ordered by name
func (r *sourceRepository) ListSourceFiles(ctx context.Context) ([]SourceFileInfo, error) {
	query := `
		SELECT name, octet_length(content) AS size_bytes, updated_at
		FROM source_files
		ORDER BY name
	`

	var files []SourceFileInfo
	if err := r.db.SelectContext(ctx, "list_source_files", &files, query); err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}

	return files, nil
}

// HealthCheck checks database connectivity
func (r *sourceRepository) HealthCheck(ctx context.Context) error {
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

// Is lets errors.Is(err, models.ErrSourceNotFound) match a missing source file
func (e *NotFoundError) Is(target error) bool {
	return target == models.ErrSourceNotFound
}

// IsTransient returns false as not found errors are permanent
func (e *NotFoundError) IsTransient() bool {
	return false
}
