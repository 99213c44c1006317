package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report storage and pipeline operating modes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		return printJSON(eng.service.Health(context.Background()))
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Copy degraded-mode data into the persistent store",
	Long: `Data written while the persistent store was unreachable lives only in
the in-process fallback store. Reconcile copies those face records and log
entries into the persistent store, skipping ids that already exist there.
It requires the persistent store to be reachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		faces, logs, err := eng.service.Reconcile(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Copied %d face(s) and %d log entries to the persistent store\n", faces, logs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(reconcileCmd)
}
