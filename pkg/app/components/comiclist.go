package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/copycomic/pkg/app/styles"
	"github.com/kerbaras/copycomic/pkg/data"
)

type ComicListItem struct {
	Comic           *data.LibraryComic
	ChapterCount    int
	DownloadedCount int
}

// ComicList is a selectable list of library comics rendered as cards.
type ComicList struct {
	Items         []ComicListItem
	SelectedIndex int
	Width         int
	Height        int
}

func NewComicList() *ComicList {
	return &ComicList{
		Items:  []ComicListItem{},
		Width:  80,
		Height: 20,
	}
}

func (m *ComicList) SetItems(items []ComicListItem) {
	m.Items = items
	if m.SelectedIndex >= len(items) {
		m.SelectedIndex = max(len(items)-1, 0)
	}
}

func (m *ComicList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex = (m.SelectedIndex + 1) % len(m.Items)
}

func (m *ComicList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		m.SelectedIndex = len(m.Items) - 1
	}
}

func (m *ComicList) Selected() *ComicListItem {
	if len(m.Items) == 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

func (m *ComicList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("No comics in library")
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var b strings.Builder
	for i, item := range m.Items {
		cardStyle := styles.CardStyle
		if i == m.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		title := styles.TitleStyle.Render(item.Comic.Name)
		id := styles.MutedStyle.Render(item.Comic.ID)

		statusText := fmt.Sprintf("Status: %s", item.Comic.Status)
		if item.Comic.Status == "" {
			statusText = "Status: Ready"
		}
		status := styles.StatusStyle(item.Comic.Status).Render(statusText)

		chapterInfo := styles.MutedStyle.Render(
			fmt.Sprintf("Chapters: %d / %d downloaded", item.DownloadedCount, item.ChapterCount),
		)

		cardContent := lipgloss.JoinVertical(lipgloss.Left, title, id, "", chapterInfo, status)
		b.WriteString(cardStyle.Width(m.Width - 4).Render(cardContent))
		b.WriteString("\n")
	}

	return b.String()
}
