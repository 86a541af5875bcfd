package screens

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/services"
)

type mockLibrary struct {
	comics   []*data.LibraryComic
	exported []string
	deleted  []string
	err      error
}

func (m *mockLibrary) Library() ([]*data.LibraryComic, error) {
	return m.comics, m.err
}

func (m *mockLibrary) LibraryStats(comicID string) (int, int, error) {
	return 10, 3, nil
}

func (m *mockLibrary) ExportEPub(comicID, outputDir string) (string, error) {
	m.exported = append(m.exported, comicID)
	return outputDir + "/" + comicID + ".epub", nil
}

func (m *mockLibrary) DeleteComic(comicID string) error {
	m.deleted = append(m.deleted, comicID)
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLibraryScreen_Load(t *testing.T) {
	library := &mockLibrary{comics: []*data.LibraryComic{
		{ID: "robot", Name: "Robot", Status: "completed"},
		{ID: "cat", Name: "Cat"},
	}}
	screen := NewLibraryScreen(library, "/tmp/epub")

	screen.Update(screen.Init()())

	view := screen.View()
	for _, want := range []string{"Comic Library", "Robot", "Cat", "3 / 10 downloaded"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view", want)
		}
	}
}

func TestLibraryScreen_ExportAndDelete(t *testing.T) {
	library := &mockLibrary{comics: []*data.LibraryComic{
		{ID: "robot", Name: "Robot"},
		{ID: "cat", Name: "Cat"},
	}}
	screen := NewLibraryScreen(library, "/tmp/epub")
	screen.Update(screen.Init()())

	screen.Update(key("j"))
	_, cmd := screen.Update(key("e"))
	if cmd == nil {
		t.Fatal("Expected an export command")
	}
	screen.Update(cmd())

	if len(library.exported) != 1 || library.exported[0] != "cat" {
		t.Errorf("Expected cat to be exported, got %v", library.exported)
	}
	if !strings.Contains(screen.View(), "/tmp/epub/cat.epub") {
		t.Error("Expected the EPub path in view")
	}

	_, cmd = screen.Update(key("d"))
	if cmd == nil {
		t.Fatal("Expected a delete command")
	}
	screen.Update(cmd())
	if len(library.deleted) != 1 || library.deleted[0] != "cat" {
		t.Errorf("Expected cat to be deleted, got %v", library.deleted)
	}
}

func TestLibraryScreen_Error(t *testing.T) {
	screen := NewLibraryScreen(&mockLibrary{err: errors.New("library is disabled")}, "")
	screen.Update(screen.Init()())

	if !strings.Contains(screen.View(), "library is disabled") {
		t.Error("Expected the error in view")
	}
}

func TestDownloadScreen_Progress(t *testing.T) {
	progress := make(chan services.DownloadProgress, 2)
	progress <- services.DownloadProgress{
		ComicID:     "robot",
		ChapterID:   "ch-1",
		ChapterName: "Chapter 1",
		Status:      "downloading",
		CurrentPage: 2,
		TotalPages:  4,
	}

	screen := NewDownloadScreen("Robot", progress, func() error { return nil }, nil)

	_, cmd := screen.Update(screen.waitForProgress())
	if cmd == nil {
		t.Error("Expected the screen to keep listening for progress")
	}
	view := screen.View()
	if !strings.Contains(view, "Chapter 1") || !strings.Contains(view, "2/4") {
		t.Errorf("Expected chapter progress in view, got %s", view)
	}

	close(progress)
	if _, ok := screen.waitForProgress().(progressClosedMsg); !ok {
		t.Error("Expected progressClosedMsg after the channel is closed")
	}
}

func TestDownloadScreen_Done(t *testing.T) {
	progress := make(chan services.DownloadProgress)
	failure := errors.New("network problem")
	screen := NewDownloadScreen("Robot", progress, func() error { return failure }, nil)

	_, cmd := screen.Update(screen.start())
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if !errors.Is(screen.Err(), failure) {
		t.Errorf("Expected job error, got %v", screen.Err())
	}
	if !strings.Contains(screen.View(), "Download failed") {
		t.Error("Expected the failure in view")
	}
}

func TestDownloadScreen_CtrlCCancels(t *testing.T) {
	cancelled := false
	screen := NewDownloadScreen("Robot", nil, func() error { return nil }, func() { cancelled = true })

	screen.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if !cancelled {
		t.Error("Expected ctrl+c to cancel the job")
	}
}
