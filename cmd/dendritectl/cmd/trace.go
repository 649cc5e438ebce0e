package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// traceCmd reads persisted traces back from the store.
var traceCmd = &cobra.Command{
	Use:   "trace [run-id]",
	Short: "Print a persisted run trace, or list run ids when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if len(args) == 0 {
			runs, err := client.Runs(ctx)
			if err != nil {
				return err
			}

			for _, id := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}

			return nil
		}

		trace, err := client.Trace(ctx, args[0])
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(trace, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(traceCmd)
}
