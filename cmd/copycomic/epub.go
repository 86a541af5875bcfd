package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var epubCmd = &cobra.Command{
	Use:   "epub [comic-id]",
	Short: "Build an EPub from the downloaded chapters of a library comic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		path, err := controller.ExportEPub(args[0], epubDir(output))
		if err != nil {
			return fmt.Errorf("EPub generation failed: %w", err)
		}
		fmt.Printf("EPub created: %s\n", path)
		return nil
	},
}

func init() {
	epubCmd.Flags().StringP("output", "o", "", "directory for the EPub file")
}
