package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/copycomic/pkg/app/components"
	"github.com/kerbaras/copycomic/pkg/app/styles"
	"github.com/kerbaras/copycomic/pkg/services"
)

// DownloadScreen runs one download job and shows the progress updates it
// emits until the job returns.
type DownloadScreen struct {
	title    string
	progress <-chan services.DownloadProgress
	run      func() error
	cancel   func()
	tracker  *components.ProgressTracker
	spinner  spinner.Model
	done     bool
	err      error
}

func NewDownloadScreen(title string, progress <-chan services.DownloadProgress, run func() error, cancel func()) *DownloadScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ProgressBarStyle

	return &DownloadScreen{
		title:    title,
		progress: progress,
		run:      run,
		cancel:   cancel,
		tracker:  components.NewProgressTracker(60),
		spinner:  sp,
	}
}

type progressMsg services.DownloadProgress

type progressClosedMsg struct{}

type downloadDoneMsg struct {
	err error
}

func (s *DownloadScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.waitForProgress, s.start)
}

func (s *DownloadScreen) start() tea.Msg {
	return downloadDoneMsg{err: s.run()}
}

func (s *DownloadScreen) waitForProgress() tea.Msg {
	p, ok := <-s.progress
	if !ok {
		return progressClosedMsg{}
	}
	return progressMsg(p)
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.tracker.SetWidth(msg.Width)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if s.cancel != nil {
				s.cancel()
			}
		}

	case progressMsg:
		s.tracker.Update(services.DownloadProgress(msg))
		return s, s.waitForProgress

	case downloadDoneMsg:
		s.done = true
		s.err = msg.err
		return s, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *DownloadScreen) View() string {
	var b strings.Builder
	completed, failed := s.tracker.Counts()

	if !s.done {
		b.WriteString(fmt.Sprintf("%s %s\n\n", s.spinner.View(), styles.TitleStyle.Render(s.title)))
		b.WriteString(s.tracker.View())
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%d chapters done, %d failed", completed, failed)))
		b.WriteString("\n")
		return b.String()
	}

	if s.err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Download failed: %s", s.err)))
	} else {
		b.WriteString(styles.StatusCompleted.Render(fmt.Sprintf("%s: %d chapters downloaded", s.title, completed)))
	}
	b.WriteString("\n")
	return b.String()
}

// Err returns the error of the finished job.
func (s *DownloadScreen) Err() error {
	return s.err
}
