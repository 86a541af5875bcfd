package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/copycomic/pkg/app/styles"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/services"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search comics by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := strings.Join(args, " ")
		return browse(cmd, func(catalog *services.Catalog) (*services.Listing, error) {
			return catalog.Search(cmd.Context(), keyword)
		})
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List recommended comics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(cmd, func(catalog *services.Catalog) (*services.Listing, error) {
			return catalog.Recommend(cmd.Context())
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category [theme]",
	Short: "List comics of a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(cmd, func(catalog *services.Catalog) (*services.Listing, error) {
			return catalog.Category(cmd.Context(), args[0])
		})
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "List the ranking page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		comics, err := controller.Catalog().Leaderboard(cmd.Context())
		if err != nil {
			return fmt.Errorf("leaderboard failed: %w", err)
		}
		printComics(comics)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, recommendCmd, categoryCmd} {
		c.Flags().IntP("page", "p", 1, "result page")
	}
}

func browse(cmd *cobra.Command, open func(*services.Catalog) (*services.Listing, error)) error {
	page, _ := cmd.Flags().GetInt("page")

	controller, err := newController()
	if err != nil {
		return err
	}
	defer controller.Close()

	listing, err := open(controller.Catalog())
	if err != nil {
		return err
	}
	comics, err := listing.Comics(cmd.Context(), page)
	if err != nil {
		return err
	}

	printComics(comics)
	fmt.Println(styles.MutedStyle.Render(fmt.Sprintf("page %d of %d", page, listing.TotalPages)))
	return nil
}

func printComics(comics []data.Comic) {
	if len(comics) == 0 {
		fmt.Println("No results found.")
		return
	}

	t := newTable("#", "Name", "ID")
	for i, comic := range comics {
		t.Row(fmt.Sprintf("%d", i+1), truncateString(comic.Name, 58), comic.ID)
	}
	fmt.Println(t)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle
			}
			return styles.CellStyle
		}).
		Headers(headers...)
}

func truncateString(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
