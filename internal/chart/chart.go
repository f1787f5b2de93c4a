// Package chart turns the merged mapping into Highcharts options and renders
// the dashboard page around them.
package chart

import (
	"time"

	"energy-dashboard/internal/models"
)

const (
	Title   = "Consumption vs Temperature (and Anomalies)"
	Caption = "Click and drag on graph to zoom in"

	AnomalousColor = "#FF0000"
	NormalColor    = "#0000FF"
	SplineColor    = "#000000"

	// CategoryLayout renders timestamps as en-GB "dd/mm/yyyy, HH:MM"
	CategoryLayout = "02/01/2006, 15:04"
)

// Options is the subset of Highcharts options the dashboard uses
type Options struct {
	Chart   ChartOptions `json:"chart"`
	Title   Text         `json:"title"`
	XAxis   XAxis        `json:"xAxis"`
	YAxis   []YAxis      `json:"yAxis"`
	Tooltip Tooltip      `json:"tooltip"`
	Series  []Series     `json:"series"`

	// Anomalies lists the categories whose tooltip gets the ANOMALY suffix
	Anomalies []string `json:"-"`
}

type ChartOptions struct {
	Zooming Zooming `json:"zooming"`
}

type Zooming struct {
	Type string `json:"type"`
}

type Text struct {
	Text string `json:"text"`
}

type XAxis struct {
	Categories []string `json:"categories"`
}

type YAxis struct {
	Labels   Labels `json:"labels"`
	Title    Text   `json:"title"`
	Opposite bool   `json:"opposite,omitempty"`
}

type Labels struct {
	Format string `json:"format"`
}

type Tooltip struct {
	Shared      bool   `json:"shared,omitempty"`
	ValueSuffix string `json:"valueSuffix,omitempty"`
}

// Series is one plotted series. Data holds []Point for columns and []*float64 for the spline.
type Series struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	YAxis   int         `json:"yAxis,omitempty"`
	Data    interface{} `json:"data"`
	Tooltip Tooltip     `json:"tooltip"`
	Color   string      `json:"color"`
}

// Point is a coloured column value. A nil Y leaves a gap.
type Point struct {
	Y     *float64 `json:"y"`
	Color string   `json:"color"`
}

// Build converts data into chart options, in ascending timestamp order.
// Categories are formatted in loc (UTC when nil). Missing consumption or
// temperature values become nulls so the series stay aligned with the categories.
func Build(data models.GraphData, loc *time.Location) Options {
	if loc == nil {
		loc = time.UTC
	}

	keys := data.SortedKeys()
	categories := make([]string, 0, len(keys))
	consumption := make([]Point, 0, len(keys))
	temperature := make([]*float64, 0, len(keys))
	anomalies := make([]string, 0)

	for _, ts := range keys {
		rec := data[ts]
		category := FormatCategory(ts, loc)
		categories = append(categories, category)

		color := NormalColor
		if rec.IsAnomalous {
			color = AnomalousColor
			anomalies = append(anomalies, category)
		}
		consumption = append(consumption, Point{Y: rec.Consumption, Color: color})
		temperature = append(temperature, rec.Temperature)
	}

	return Options{
		Chart: ChartOptions{Zooming: Zooming{Type: "x"}},
		Title: Text{Text: Title},
		XAxis: XAxis{Categories: categories},
		YAxis: []YAxis{
			{Labels: Labels{Format: "{value}W"}, Title: Text{Text: "Consumption"}},
			{Labels: Labels{Format: "{value}°C"}, Title: Text{Text: "Temperature"}, Opposite: true},
		},
		Tooltip: Tooltip{Shared: true},
		Series: []Series{
			{
				Name:    "Consumption",
				Type:    "column",
				Data:    consumption,
				Tooltip: Tooltip{ValueSuffix: "W"},
				Color:   NormalColor,
			},
			{
				Name:    "Temperature",
				Type:    "spline",
				YAxis:   1,
				Data:    temperature,
				Tooltip: Tooltip{ValueSuffix: "°C"},
				Color:   SplineColor,
			},
		},
		Anomalies: anomalies,
	}
}

// FormatCategory renders a canonical timestamp as an x-axis category
func FormatCategory(ts models.CanonicalTimestamp, loc *time.Location) string {
	return time.UnixMilli(int64(ts)).In(loc).Format(CategoryLayout)
}
