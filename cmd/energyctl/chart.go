package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"energy-dashboard/internal/chart"
	"energy-dashboard/internal/client"
	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
)

var (
	chartOutput string
	chartAPIURL string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Write the dashboard as a static HTML file",
	Long: `Renders the consumption vs temperature chart to a standalone HTML page.
With --api-url the data is fetched from a running server's /api/energy;
otherwise the sources are merged locally.`,
	Args: cobra.NoArgs,
	RunE: runChart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "dashboard.html", "HTML file to write")
	chartCmd.Flags().StringVar(&chartAPIURL, "api-url", "", "base URL of a running energy API")
	rootCmd.AddCommand(chartCmd)
}

func runChart(cmd *cobra.Command, args []string) error {
	if chartAPIURL != "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		apiClient := client.New(client.Config{
			BaseURL:    chartAPIURL,
			Timeout:    cfg.Sources.FetchTimeout,
			MaxRetries: cfg.Sources.MaxRetries,
		}, logger, newCollector())

		data, err := apiClient.GraphData(cmd.Context())
		if err != nil {
			return err
		}
		return writeChart(cmd, data, loc)
	}

	return withService(cmd.Context(), func(ctx context.Context, svc *services.EnergyService, loc *time.Location) error {
		data, err := svc.GraphData(ctx)
		if err != nil {
			return err
		}
		return writeChart(cmd, data, loc)
	})
}

func writeChart(cmd *cobra.Command, data models.GraphData, loc *time.Location) error {
	var buf bytes.Buffer
	if err := chart.Render(&buf, chart.Build(data, loc), time.Now().In(loc)); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	if err := os.WriteFile(chartOutput, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", chartOutput, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Wrote %s", chartOutput)) + " " +
		mutedStyle.Render(fmt.Sprintf("(%s records, %s anomalous, %s)",
			humanize.Comma(int64(len(data))),
			humanize.Comma(int64(data.AnomalyCount())),
			humanize.Bytes(uint64(buf.Len())))))
	return nil
}
