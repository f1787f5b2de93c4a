package services

import (
	"math"
	"strconv"
	"strings"
	"time"

	"energy-dashboard/internal/models"
)

// Layouts accepted after any day/month reordering. Month and day may be one or two digits.
var dateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// Normalizer converts source date text into canonical timestamps
type Normalizer struct {
	// Location is the zone the source timestamps were recorded in. Nil means UTC.
	Location *time.Location
}

// NewNormalizer creates a normalizer for loc
func NewNormalizer(loc *time.Location) Normalizer {
	return Normalizer{Location: loc}
}

// NormalizeUS parses a month/day/year date as written by the energy and anomaly sources
func (n Normalizer) NormalizeUS(text string) (models.CanonicalTimestamp, error) {
	text = strings.TrimSpace(text)
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return models.CanonicalTimestamp(t.UnixMilli()), nil
		}
	}

	return 0, &models.ValidationError{
		Field:   "timestamp",
		Value:   text,
		Message: "not a month/day/year date",
	}
}

// NormalizeWeather parses a day/month/year date as written by the weather source.
// Day and month are swapped before parsing.
func (n Normalizer) NormalizeWeather(text string) (models.CanonicalTimestamp, error) {
	trimmed := strings.TrimSpace(text)
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) != 3 {
		return 0, &models.ValidationError{
			Field:   "timestamp",
			Value:   trimmed,
			Message: "not a day/month/year date",
		}
	}

	ts, err := n.NormalizeUS(parts[1] + "/" + parts[0] + "/" + parts[2])
	if err != nil {
		return 0, &models.ValidationError{
			Field:   "timestamp",
			Value:   trimmed,
			Message: "not a day/month/year date",
		}
	}
	return ts, nil
}

// For returns the date normalizer a source is written in
func (n Normalizer) For(source models.SourceName) func(string) (models.CanonicalTimestamp, error) {
	if source == models.SourceWeather {
		return n.NormalizeWeather
	}
	return n.NormalizeUS
}

// Rejection describes a row dropped during normalization
type Rejection struct {
	Row    int // 1-based data row, header excluded
	Reason string
	Err    error
}

// Rejection reasons, used as metric labels
const (
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonInvalidValue     = "invalid_value"
	ReasonMissingField     = "missing_field"
)

// valueColumn is the column holding each source's contributed value, or -1
var valueColumn = map[models.SourceName]int{
	models.SourceEnergy:    1,
	models.SourceWeather:   1,
	models.SourceAnomalies: -1,
}

// Readings normalizes rows of one source. Rows with an unparsable date or value
// are rejected and reported rather than propagated with an invalid key.
func (n Normalizer) Readings(source models.SourceName, rows []models.RawRow) ([]models.Reading, []Rejection) {
	normalize := n.For(source)
	col := valueColumn[source]

	readings := make([]models.Reading, 0, len(rows))
	var rejected []Rejection

	for i, row := range rows {
		if len(row) == 0 || (col >= 0 && len(row) <= col) {
			rejected = append(rejected, Rejection{
				Row:    i + 1,
				Reason: ReasonMissingField,
				Err: &models.ValidationError{
					Field:   "row",
					Value:   strings.Join(row, ","),
					Message: "too few fields",
				},
			})
			continue
		}

		ts, err := normalize(row[0])
		if err != nil {
			rejected = append(rejected, Rejection{Row: i + 1, Reason: ReasonInvalidTimestamp, Err: err})
			continue
		}

		reading := models.Reading{Timestamp: ts}
		if col >= 0 {
			raw := strings.TrimSpace(row[col])
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				rejected = append(rejected, Rejection{
					Row:    i + 1,
					Reason: ReasonInvalidValue,
					Err: &models.ValidationError{
						Field:   "value",
						Value:   raw,
						Message: "not a finite number",
					},
				})
				continue
			}
			reading.Value = value
		}

		readings = append(readings, reading)
	}

	return readings, rejected
}
