package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"energy-dashboard/internal/models"
)

// ParseRows splits comma-delimited source text into rows, dropping the header.
// Blank lines, including the trailing one, are skipped. Any structural error
// fails the whole source with a *models.ParseFailure and no rows.
func ParseRows(source models.SourceName, content []byte) ([]models.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	var rows []models.RawRow
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.ParseFailure{Source: source, Err: err}
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, models.RawRow(record))
	}

	return rows, nil
}
