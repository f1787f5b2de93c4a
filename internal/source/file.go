package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"energy-dashboard/internal/models"
)

// FileLoader reads sources from a local data directory
type FileLoader struct {
	dir   string
	files map[models.SourceName]string
}

// NewFileLoader creates a loader reading files[name] under dir
func NewFileLoader(dir string, files map[models.SourceName]string) *FileLoader {
	return &FileLoader{dir: dir, files: files}
}

// Backend returns "file"
func (l *FileLoader) Backend() string {
	return "file"
}

// Load reads the whole source file
func (l *FileLoader) Load(ctx context.Context, name models.SourceName) ([]byte, error) {
	file, err := fileFor(l.files, name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, file)

	if err := ctx.Err(); err != nil {
		return nil, &models.FetchFailure{Source: name, URL: path, Err: err}
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &models.FetchFailure{
			Source: name,
			URL:    path,
			Err:    fmt.Errorf("%w: %s", models.ErrSourceNotFound, path),
		}
	}
	if err != nil {
		return nil, &models.FetchFailure{Source: name, URL: path, Err: err}
	}

	return content, nil
}

// HealthCheck verifies the data directory exists
func (l *FileLoader) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dir)
	}
	return nil
}
