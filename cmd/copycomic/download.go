package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/app"
	"github.com/kerbaras/copycomic/pkg/services"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [comic-id]",
	Short: "Download a comic or a single chapter",
	Long: `Download every chapter of a comic, one after another, into <output>/<chapter name>/.
Each chapter directory holds download_info.txt and one PNG per page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comicID := args[0]
		chapterID, _ := cmd.Flags().GetString("chapter")
		plain, _ := cmd.Flags().GetBool("plain")

		if cmd.Flags().Changed("output") {
			cfg.OutputDir, _ = cmd.Flags().GetString("output")
		}
		if cmd.Flags().Changed("order") {
			cfg.OrderStrategy, _ = cmd.Flags().GetString("order")
		}
		if cmd.Flags().Changed("continue-on-error") {
			cfg.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
		}
		if cmd.Flags().Changed("retries") {
			cfg.MaxRetries, _ = cmd.Flags().GetInt("retries")
		}

		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		var report *services.Report
		job := func(ctx context.Context) error {
			if chapterID != "" {
				return controller.DownloadChapter(ctx, comicID, chapterID, "")
			}
			var err error
			report, err = controller.DownloadComic(ctx, comicID, "")
			return err
		}

		if plain || !isatty.IsTerminal(os.Stdout.Fd()) {
			err = job(cmd.Context())
		} else {
			// Progress is rendered by the TUI instead of the log.
			log.SetOutput(io.Discard)
			err = app.NewApp(controller).RunDownload(cmd.Context(), comicID, job)
			log.SetOutput(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		if report != nil {
			fmt.Printf("%d chapters downloaded, %d failed\n", len(report.Succeeded), len(report.Failed))
			for _, failure := range report.Failed {
				fmt.Printf("  %s: %s\n", failure.Chapter.Name, failure.Err)
			}
			if !report.OK() {
				return fmt.Errorf("%d chapters failed", len(report.Failed))
			}
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("chapter", "c", "", "download only this chapter id")
	downloadCmd.Flags().StringP("output", "o", "", "output directory (default: the comic name)")
	downloadCmd.Flags().String("order", services.OrderPermutation, "page naming: permutation or sequential")
	downloadCmd.Flags().Bool("continue-on-error", false, "keep going after a failed chapter and report at the end")
	downloadCmd.Flags().Int("retries", 0, "retries per failed chapter")
	downloadCmd.Flags().Bool("plain", false, "log progress instead of showing the TUI")
}
