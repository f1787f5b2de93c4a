package models

import "time"

// DailySummary aggregates one calendar day of merged records in the source time zone.
// Value fields are nil when no record that day carried the value.
type DailySummary struct {
	Date                  string   `json:"date"`
	IntervalCount         int      `json:"interval_count"`
	TotalConsumption      *float64 `json:"total_consumption,omitempty"`
	AvgConsumption        *float64 `json:"avg_consumption,omitempty"`
	PeakConsumption       *float64 `json:"peak_consumption,omitempty"`
	MinTemperature        *float64 `json:"min_temperature,omitempty"`
	MaxTemperature        *float64 `json:"max_temperature,omitempty"`
	AvgTemperature        *float64 `json:"avg_temperature,omitempty"`
	AnomalyCount          int      `json:"anomaly_count"`
	ValidConsumptionCount int      `json:"valid_consumption_count"`
	ValidTemperatureCount int      `json:"valid_temperature_count"`
}

// SummaryFilter selects and pages daily summaries. From and To are inclusive dates.
type SummaryFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
