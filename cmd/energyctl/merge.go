package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"energy-dashboard/internal/services"
)

var (
	mergeOutput string
	mergeIndent bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Print the merged mapping as JSON",
	Long: `Loads all three sources and prints the mapping served at /api/energy:
an object keyed by timestamp in milliseconds, each value holding consumption,
temperature and isAnomalous.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "write JSON to this file instead of stdout")
	mergeCmd.Flags().BoolVar(&mergeIndent, "indent", false, "indent the JSON output")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(ctx context.Context, svc *services.EnergyService, _ *time.Location) error {
		data, err := svc.GraphData(ctx)
		if err != nil {
			return err
		}

		var out []byte
		if mergeIndent {
			out, err = json.MarshalIndent(data, "", "  ")
		} else {
			out, err = json.Marshal(data)
		}
		if err != nil {
			return fmt.Errorf("failed to marshal mapping: %w", err)
		}

		if mergeOutput == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		if err := os.WriteFile(mergeOutput, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", mergeOutput, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Wrote %d records to %s", len(data), mergeOutput)))
		return nil
	})
}
