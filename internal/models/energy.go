package models

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// SourceName identifies one of the three tabular inputs
type SourceName string

const (
	SourceEnergy    SourceName = "energy"
	SourceWeather   SourceName = "weather"
	SourceAnomalies SourceName = "anomalies"
)

// AllSources lists the sources in merge order
var AllSources = []SourceName{SourceEnergy, SourceWeather, SourceAnomalies}

// RawRow is one source line split into fields, header and trailing blank line already removed
type RawRow []string

// CanonicalTimestamp is milliseconds since the Unix epoch, the join key across all sources
type CanonicalTimestamp int64

// TimedRow is a RawRow whose date column has been normalized
type TimedRow struct {
	Timestamp CanonicalTimestamp
	Fields    RawRow
}

// Reading is a normalized row reduced to the one value its source contributes.
// Anomaly readings carry no value.
type Reading struct {
	Timestamp CanonicalTimestamp
	Value     float64
}

// MergedRecord combines everything known about one half-hourly interval.
// Consumption and Temperature are nil when no source contributed them.
type MergedRecord struct {
	Consumption *float64 `json:"consumption,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	IsAnomalous bool     `json:"isAnomalous"`
}

// GraphData is the merged mapping served at /api/energy.
// encoding/json writes the integer keys as decimal strings.
type GraphData map[CanonicalTimestamp]MergedRecord

// SortedKeys returns the timestamps in ascending order
func (g GraphData) SortedKeys() []CanonicalTimestamp {
	keys := make([]CanonicalTimestamp, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// AnomalyCount returns how many records are flagged anomalous
func (g GraphData) AnomalyCount() int {
	n := 0
	for _, rec := range g {
		if rec.IsAnomalous {
			n++
		}
	}
	return n
}

// Float returns a pointer to v, for building MergedRecord literals
func Float(v float64) *float64 {
	return &v
}

// ParseFailure reports malformed source text. The whole source is rejected.
type ParseFailure struct {
	Source SourceName
	Err    error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("unable to parse data from source %s: %v", e.Source, e.Err)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// IsTransient returns false: re-reading the same text fails the same way
func (e *ParseFailure) IsTransient() bool {
	return false
}

// FetchFailure reports a source that could not be read or answered with a non-success status
type FetchFailure struct {
	Source     SourceName
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailure) Error() string {
	target := string(e.Source)
	switch {
	case e.Source == "":
		target = e.URL
	case e.URL != "":
		target = fmt.Sprintf("%s (%s)", e.Source, e.URL)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: status %d", target, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", target, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying could succeed (transport errors, 429 and 5xx)
func (e *FetchFailure) IsTransient() bool {
	if e.StatusCode == 0 {
		return e.Err != nil && !errors.Is(e.Err, ErrSourceNotFound)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrSourceNotFound marks a source that does not exist in its backend
var ErrSourceNotFound = errors.New("source not found")

// ValidationError represents a rejected row value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
