package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/trendlab/internal/logging"
	"github.com/sawpanic/trendlab/internal/obsmetrics"
)

const (
	appName = "trendlab"
	version = "v1.0.0"
)

// metricsRegistry is shared by every subcommand in one invocation; the core
// itself never touches a process-global registry.
var metricsRegistry = obsmetrics.NewRegistry()

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Research-grade trend-following backtester",
		Version: version,
		Long: `trendlab is a deterministic, reproducible backtester for parameterized
trend-following strategies: grid sweeps with risk-adjusted ranking, walk-forward
validation, and a continuous self-optimizing exploration loop.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newYoloCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newArtifactCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
