package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"energy-dashboard/internal/chart"
	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
)

var (
	anomaliesLimit int
	anomaliesJSON  bool
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List intervals flagged as anomalous",
	Args:  cobra.NoArgs,
	RunE:  runAnomalies,
}

func init() {
	anomaliesCmd.Flags().IntVarP(&anomaliesLimit, "limit", "n", 0, "show at most this many intervals (0 for all)")
	anomaliesCmd.Flags().BoolVar(&anomaliesJSON, "json", false, "output intervals as JSON")
	rootCmd.AddCommand(anomaliesCmd)
}

// anomaly is one flagged interval as printed by the anomalies command
type anomaly struct {
	Timestamp   models.CanonicalTimestamp `json:"timestamp"`
	Time        string                    `json:"time"`
	Consumption *float64                  `json:"consumption,omitempty"`
	Temperature *float64                  `json:"temperature,omitempty"`
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(ctx context.Context, svc *services.EnergyService, loc *time.Location) error {
		data, err := svc.GraphData(ctx)
		if err != nil {
			return err
		}

		found := collectAnomalies(data, loc, anomaliesLimit)
		if anomaliesJSON {
			out, err := json.MarshalIndent(found, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal anomalies: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		printAnomalies(cmd, found, data)
		return nil
	})
}

// collectAnomalies returns flagged intervals in time order, at most limit when limit > 0
func collectAnomalies(data models.GraphData, loc *time.Location, limit int) []anomaly {
	found := []anomaly{}
	for _, ts := range data.SortedKeys() {
		rec := data[ts]
		if !rec.IsAnomalous {
			continue
		}
		found = append(found, anomaly{
			Timestamp:   ts,
			Time:        chart.FormatCategory(ts, loc),
			Consumption: rec.Consumption,
			Temperature: rec.Temperature,
		})
		if limit > 0 && len(found) == limit {
			break
		}
	}
	return found
}

func printAnomalies(cmd *cobra.Command, found []anomaly, data models.GraphData) {
	out := cmd.OutOrStdout()
	total := data.AnomalyCount()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Anomalous intervals: %s of %s",
		humanize.Comma(int64(total)), humanize.Comma(int64(len(data))))))

	if len(found) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No anomalies found."))
		return
	}

	fmt.Fprintln(out, mutedStyle.Render(
		timestampColumn.Render("Time") + valueColumn.Render("Consumption") + valueColumn.Render("Temperature")))
	for _, a := range found {
		fmt.Fprintln(out, anomalyStyle.Render(timestampColumn.Render(a.Time)) +
			normalStyle.Render(valueColumn.Render(formatValue(a.Consumption))) +
			normalStyle.Render(valueColumn.Render(formatValue(a.Temperature))))
	}

	if len(found) < total {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("... %s more", humanize.Comma(int64(total-len(found))))))
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
