package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kerbaras/copycomic/pkg/app/styles"
	"github.com/kerbaras/copycomic/pkg/services"
)

// ProgressTracker keeps the latest update of every unfinished chapter.
type ProgressTracker struct {
	downloads map[string]*services.DownloadProgress
	completed int
	failed    int
	width     int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		downloads: make(map[string]*services.DownloadProgress),
		width:     width,
	}
}

func (p *ProgressTracker) Update(progress services.DownloadProgress) {
	key := progress.ComicID + ":" + progress.ChapterID
	switch progress.Status {
	case "complete":
		delete(p.downloads, key)
		p.completed++
	case "error":
		p.failed++
		prog := progress
		p.downloads[key] = &prog
	default:
		prog := progress
		p.downloads[key] = &prog
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) Clear() {
	p.downloads = make(map[string]*services.DownloadProgress)
	p.completed = 0
	p.failed = 0
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > 0
}

// Counts returns how many chapters completed and failed so far.
func (p *ProgressTracker) Counts() (int, int) {
	return p.completed, p.failed
}

func (p *ProgressTracker) View() string {
	if len(p.downloads) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p.downloads))
	for key := range p.downloads {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Active Downloads"))
	b.WriteString("\n\n")

	for _, key := range keys {
		progress := p.downloads[key]

		b.WriteString(styles.TextStyle.Render(progress.ChapterName))
		b.WriteString("\n")

		statusText := progress.Status
		if progress.TotalPages > 0 {
			percentage := float64(progress.CurrentPage) / float64(progress.TotalPages) * 100
			statusText = fmt.Sprintf("%s (%d/%d pages - %.0f%%)",
				progress.Status, progress.CurrentPage, progress.TotalPages, percentage)

			b.WriteString(renderProgressBar(progress.CurrentPage, progress.TotalPages, p.width-4))
			b.WriteString("\n")
		}

		b.WriteString(styles.StatusStyle(progress.Status).Render(statusText))
		b.WriteString("\n")

		if progress.Error != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Error)))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
