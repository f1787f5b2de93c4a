package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
)

var (
	summaryFrom string
	summaryTo   string
	summaryJSON bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-day consumption and temperature statistics",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFrom, "from", "", "first day to include (YYYY-MM-DD)")
	summaryCmd.Flags().StringVar(&summaryTo, "to", "", "last day to include (YYYY-MM-DD)")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "output summaries as JSON")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	filter := models.SummaryFilter{}
	for _, f := range []struct {
		value string
		dst   **time.Time
		flag  string
	}{
		{summaryFrom, &filter.From, "from"},
		{summaryTo, &filter.To, "to"},
	} {
		if f.value == "" {
			continue
		}
		day, err := time.Parse(services.DateLayout, f.value)
		if err != nil {
			return fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", f.flag, f.value)
		}
		*f.dst = &day
	}

	return withService(cmd.Context(), func(ctx context.Context, svc *services.EnergyService, loc *time.Location) error {
		stats := services.NewStatisticsService(svc, loc, logger, newCollector())
		days, _, err := stats.DailySummaries(ctx, filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if summaryJSON {
			encoded, err := json.MarshalIndent(days, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal summaries: %w", err)
			}
			fmt.Fprintln(out, string(encoded))
			return nil
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Daily summary (%d days)", len(days))))
		if len(days) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No data in range."))
			return nil
		}

		fmt.Fprintln(out, mutedStyle.Render(nameColumn.Render("Date")+
			valueColumn.Render("Total kWh")+valueColumn.Render("Peak kWh")+
			valueColumn.Render("Min °C")+valueColumn.Render("Max °C")+valueColumn.Render("Anomalies")))
		for _, day := range days {
			anomalies := normalStyle.Render(valueColumn.Render(fmt.Sprint(day.AnomalyCount)))
			if day.AnomalyCount > 0 {
				anomalies = anomalyStyle.Render(valueColumn.Render(fmt.Sprint(day.AnomalyCount)))
			}
			fmt.Fprintln(out, nameColumn.Render(day.Date)+
				valueColumn.Render(formatRounded(day.TotalConsumption))+
				valueColumn.Render(formatRounded(day.PeakConsumption))+
				valueColumn.Render(formatRounded(day.MinTemperature))+
				valueColumn.Render(formatRounded(day.MaxTemperature))+
				anomalies)
		}
		return nil
	})
}

func formatRounded(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
