package screens

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/copycomic/pkg/app/components"
	"github.com/kerbaras/copycomic/pkg/app/styles"
	"github.com/kerbaras/copycomic/pkg/data"
)

// Library is the part of the controller the library screen needs.
type Library interface {
	Library() ([]*data.LibraryComic, error)
	LibraryStats(comicID string) (int, int, error)
	ExportEPub(comicID, outputDir string) (string, error)
	DeleteComic(comicID string) error
}

type LibraryScreen struct {
	library   Library
	epubDir   string
	comicList *components.ComicList
	width     int
	height    int
	status    string
	err       error
}

func NewLibraryScreen(library Library, epubDir string) *LibraryScreen {
	return &LibraryScreen{
		library:   library,
		epubDir:   epubDir,
		comicList: components.NewComicList(),
	}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadLibrary
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.comicList.Width = msg.Width - 4
		s.comicList.Height = msg.Height - 10

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return s, tea.Quit
		case "up", "k":
			s.comicList.Prev()
		case "down", "j":
			s.comicList.Next()
		case "r":
			return s, s.loadLibrary
		case "d":
			if selected := s.comicList.Selected(); selected != nil {
				return s, s.deleteComic(selected.Comic.ID)
			}
		case "e":
			if selected := s.comicList.Selected(); selected != nil {
				s.status = fmt.Sprintf("Building EPub for %s...", selected.Comic.Name)
				return s, s.generateEPub(selected.Comic.ID)
			}
		}

	case libraryLoadedMsg:
		s.comicList.SetItems(msg.items)
		s.err = msg.err

	case epubGeneratedMsg:
		s.err = msg.err
		s.status = ""
		if msg.err == nil {
			s.status = fmt.Sprintf("EPub written to %s", msg.path)
		}

	case comicDeletedMsg:
		s.err = msg.err
		return s, s.loadLibrary
	}

	return s, nil
}

func (s *LibraryScreen) View() string {
	header := styles.TitleStyle.Render("Comic Library")

	var notice string
	if s.err != nil {
		notice = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	} else if s.status != "" {
		notice = styles.StatusCompleted.Render(s.status) + "\n\n"
	}

	help := styles.HelpStyle.Render("↑/k: up • ↓/j: down • e: build EPub • d: delete • r: refresh • q: quit")

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, notice, s.comicList.View(), help)
}

type libraryLoadedMsg struct {
	items []components.ComicListItem
	err   error
}

type epubGeneratedMsg struct {
	path string
	err  error
}

type comicDeletedMsg struct {
	err error
}

func (s *LibraryScreen) loadLibrary() tea.Msg {
	comics, err := s.library.Library()
	if err != nil {
		return libraryLoadedMsg{err: err}
	}

	items := make([]components.ComicListItem, len(comics))
	for i, comic := range comics {
		total, downloaded, _ := s.library.LibraryStats(comic.ID)
		items[i] = components.ComicListItem{
			Comic:           comic,
			ChapterCount:    total,
			DownloadedCount: downloaded,
		}
	}
	return libraryLoadedMsg{items: items}
}

func (s *LibraryScreen) generateEPub(comicID string) tea.Cmd {
	return func() tea.Msg {
		path, err := s.library.ExportEPub(comicID, s.epubDir)
		return epubGeneratedMsg{path: path, err: err}
	}
}

func (s *LibraryScreen) deleteComic(comicID string) tea.Cmd {
	return func() tea.Msg {
		return comicDeletedMsg{err: s.library.DeleteComic(comicID)}
	}
}
