package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters [comic-id]",
	Short: "List every chapter of a comic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		comic, chapters, err := controller.Chapters(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable("#", "Chapter", "ID")
		for i, chapter := range chapters {
			t.Row(fmt.Sprintf("%d", i+1), truncateString(chapter.Name, 40), chapter.ID)
		}
		fmt.Printf("%s (%d chapters)\n", comic.Name, len(chapters))
		fmt.Println(t)
		return nil
	},
}
