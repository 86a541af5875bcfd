package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/app"
	"github.com/kerbaras/copycomic/pkg/config"
	"github.com/kerbaras/copycomic/pkg/services"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "copycomic",
	Short: "Download comics from CopyManga",
	Long:  "Browse the CopyManga catalog, download chapters as numbered PNG pages and keep a local library",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Launch the library browser by default
		controller, err := newController()
		if err != nil {
			return err
		}
		defer controller.Close()

		return app.NewApp(controller).RunLibrary(epubDir(""))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./copycomic.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(epubCmd)
}

func newController() (*services.ComicController, error) {
	return services.NewComicController(cfg)
}

// epubDir falls back to the configured output dir, then the working
// directory.
func epubDir(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return "."
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
