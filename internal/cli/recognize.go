package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var recognizeThreshold float64

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the faces in an image against the gallery",
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

		var threshold *float64
		if cmd.Flags().Changed("threshold") {
			threshold = &recognizeThreshold
		}

		resp, err := eng.service.Recognize(context.Background(), image, threshold)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	recognizeCmd.Flags().Float64Var(&recognizeThreshold, "threshold", 0, "Similarity threshold in [-1, 1] (default from config)")
	rootCmd.AddCommand(recognizeCmd)
}
