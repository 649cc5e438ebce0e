package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dendrite/internal/config"
	"dendrite/internal/logger"
	"dendrite/pkg/dendrite"
)

var (
	// networkPath points at the YAML network definition.
	networkPath string
	// runID labels the run; a fresh id is generated when empty.
	runID string
	// cycles overrides the cycle count from the network definition.
	cycles int

	// runCmd drives synchronization cycles through a sensor network.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Build a sensor network and drive synchronization cycles through it.",
		Long: `Builds the sensor network described by the YAML definition, drives the
requested number of synchronization cycles through it, and persists the
resulting trace under the run id.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			network, err := config.Load(networkPath)
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(ctx, dendrite.RunRequest{
				Network: network,
				RunID:   runID,
				Cycles:  cycles,
			})
			if err != nil {
				return err
			}

			logger.Logger().Infow("run complete",
				"run_id", summary.RunID,
				"topology_id", summary.TopologyID,
				"cycles", summary.Cycles,
				"deliveries", summary.Deliveries)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runCmd.Flags().StringVarP(&networkPath, "network", "n", config.DefaultConfigFilename, "path to the network definition")
	runCmd.Flags().StringVarP(&runID, "run", "r", "", "run id (generated when empty)")
	runCmd.Flags().IntVarP(&cycles, "cycles", "c", 0, "cycle count override")

	rootCmd.AddCommand(runCmd)
}
