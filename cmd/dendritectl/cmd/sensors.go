package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dendrite/internal/sensor"
)

// sensorsCmd lists the registered sensor types.
var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List the registered sensor types.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range sensor.ListTypes() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(sensorsCmd)
}
