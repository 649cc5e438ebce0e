package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dendrite/internal/logger"
	"dendrite/internal/storage"
	"dendrite/pkg/dendrite"
)

var (
	// storeKind selects the backing store for topologies and traces.
	storeKind string
	// storePath points at the store file for file-backed stores.
	storePath string
	// logLevel controls the verbosity of the global logger.
	logLevel string

	// rootCmd represents the base command for the dendrite control tool.
	rootCmd = &cobra.Command{
		Use:   "dendritectl",
		Short: "Run and inspect dendrite sensor networks.",
		Long: `Control tool for dendrite sensor networks.

Builds a network of sensor nodes from a YAML definition, drives synchronization
cycles through it, and persists the resulting signal traces. Stored traces can
be read back and inspected by run id.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the dendritectl CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&storeKind, "store", "s", storage.DefaultStoreKind(), "store kind (memory or sqlite)")
	rootCmd.PersistentFlags().StringVarP(&storePath, "store-path", "p", "", "path to the store file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
}

func newClient() (*dendrite.Client, error) {
	return dendrite.New(dendrite.Options{
		StoreKind: storeKind,
		DBPath:    storePath,
		Logger:    logger.Logger(),
	})
}
