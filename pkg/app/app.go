package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/copycomic/pkg/app/screens"
	"github.com/kerbaras/copycomic/pkg/services"
)

type App struct {
	controller *services.ComicController
}

func NewApp(controller *services.ComicController) *App {
	return &App{controller: controller}
}

// RunLibrary opens the interactive library browser. EPub files are written
// to epubDir.
func (a *App) RunLibrary(epubDir string) error {
	model := screens.NewLibraryScreen(a.controller, epubDir)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunDownload runs job while rendering the controller's progress updates.
// Ctrl+C cancels the context handed to job.
func (a *App) RunDownload(ctx context.Context, title string, job func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := screens.NewDownloadScreen(title, a.controller.GetProgressChannel(), func() error {
		return job(ctx)
	}, cancel)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	return final.(*screens.DownloadScreen).Err()
}
