// Package source reads the raw text of the energy, weather and anomaly sources
// from one of the supported backends.
package source

import (
	"context"
	"fmt"

	"energy-dashboard/internal/models"
)

// Loader returns the raw content of a named source.
// Every failure is reported as a *models.FetchFailure.
type Loader interface {
	Load(ctx context.Context, name models.SourceName) ([]byte, error)
	Backend() string
}

// fileFor resolves the configured file name for a source
func fileFor(files map[models.SourceName]string, name models.SourceName) (string, error) {
	file, ok := files[name]
	if !ok || file == "" {
		return "", &models.FetchFailure{
			Source: name,
			Err:    fmt.Errorf("%w: no file configured for source %q", models.ErrSourceNotFound, name),
		}
	}
	return file, nil
}
