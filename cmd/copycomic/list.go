package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all comics in your library",
	Long:  "Display all comics in your library in a formatted table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		comics, err := controller.Library()
		if err != nil {
			return err
		}
		if len(comics) == 0 {
			fmt.Println("No comics in library. Use 'copycomic download' to add one.")
			return nil
		}

		columns := []table.Column{
			{Title: "Name", Width: 40},
			{Title: "ID", Width: 24},
			{Title: "Status", Width: 12},
			{Title: "Chapters", Width: 10},
			{Title: "Downloaded", Width: 12},
		}

		rows := []table.Row{}
		for _, comic := range comics {
			total, downloaded, _ := controller.LibraryStats(comic.ID)
			status := comic.Status
			if status == "" {
				status = "ready"
			}
			rows = append(rows, table.Row{
				truncateString(comic.Name, 38),
				truncateString(comic.ID, 22),
				status,
				fmt.Sprintf("%d", total),
				fmt.Sprintf("%d", downloaded),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.NoColor{}).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\nLibrary (%d comics)\n\n", len(comics))
		fmt.Println(t.View())
		return nil
	},
}
