// Command energyctl merges the energy, weather and anomaly sources from the
// command line and writes the result as JSON, a static dashboard or a report.
package main

import (
	"context"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"energy-dashboard/internal/config"
	"energy-dashboard/internal/services"
	"energy-dashboard/internal/source"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

var (
	configPath string
	dataDir    string
	timezone   string
	verbose    bool

	cfg    *config.Config
	logger *logging.StructuredLogger
)

var rootCmd = &cobra.Command{
	Use:   "energyctl",
	Short: "Merge and inspect half-hourly energy data",
	Long: `energyctl loads the energy consumption, weather and anomaly sources,
aligns them on a common half-hourly timestamp and reports the result.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file (defaults to $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "read sources from this directory (forces the file backend)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "time zone the source timestamps are written in")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log source loading details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("data-dir") {
		loaded.Sources.Backend = config.BackendFile
		loaded.Sources.DataDir = dataDir
	}
	if cmd.Flags().Changed("timezone") {
		loaded.Sources.Timezone = timezone
	}

	if err := loaded.Validate(); err != nil {
		return err
	}

	level := logging.WarnLevel
	if verbose {
		level = logging.DebugLevel
	}
	logger = logging.NewStructuredLogger("energyctl", "1.0.0", level)
	logger.SetOutput(cmd.ErrOrStderr())

	cfg = loaded
	return nil
}

// newCollector returns a private registry; the CLI exposes no /metrics endpoint
func newCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("energyctl", prometheus.NewRegistry())
}

// withLoader opens the configured source backend for the duration of fn
func withLoader(fn func(loader source.Loader) error) error {
	loader, closeLoader, err := source.FromConfig(cfg, logger, newCollector())
	if err != nil {
		return err
	}
	defer closeLoader()

	return fn(loader)
}

// withService runs fn against an in-process merge service
func withService(ctx context.Context, fn func(ctx context.Context, svc *services.EnergyService, loc *time.Location) error) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	return withLoader(func(loader source.Loader) error {
		svc := services.NewEnergyService(loader, loc, logger, newCollector())
		if err := fn(ctx, svc, loc); err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}
		return nil
	})
}
