package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage the gallery of enrolled faces",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled faces in insertion order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		faces, err := eng.service.ListFaces(context.Background())
		if err != nil {
			return err
		}
		return printJSON(faces)
	},
}

var facesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one enrolled face by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		rec, err := eng.service.GetFace(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an enrolled face by id (no-op if unknown)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		existed, err := eng.service.DeleteFace(context.Background(), args[0])
		if err != nil {
			return err
		}
		if existed {
			fmt.Printf("Deleted face %s\n", args[0])
		} else {
			fmt.Printf("No face with id %s\n", args[0])
		}
		return nil
	},
}

func init() {
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesGetCmd)
	facesCmd.AddCommand(facesDeleteCmd)
	rootCmd.AddCommand(facesCmd)
}
