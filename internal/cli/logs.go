package cli

import (
	"context"
	"fmt"
	"time"

	"facematch/internal/storage"

	"github.com/spf13/cobra"
)

var (
	logsSince  string
	logsMethod string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recognition log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.LogFilter{
			Method: logsMethod,
			Limit:  logsLimit,
		}
		if logsSince != "" {
			since, err := time.Parse(time.RFC3339, logsSince)
			if err != nil {
				return fmt.Errorf("invalid --since value %q, expected RFC3339: %w", logsSince, err)
			}
			filter.Since = &since
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		entries, err := eng.service.ListLogs(context.Background(), filter)
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only entries at or after this RFC3339 timestamp")
	logsCmd.Flags().StringVar(&logsMethod, "method", "", "Filter by pipeline method (real or fallback)")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "Maximum number of entries, 0 for all")
	rootCmd.AddCommand(logsCmd)
}
