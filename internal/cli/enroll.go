package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollName string

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll a face from an image containing exactly one face",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		rec, err := eng.service.Enroll(context.Background(), enrollName, image)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "Name label for the enrolled face (required)")
	_ = enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
}
