package integrations

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/utils"
)

type EPubBuilder struct {
	outputDir string
}

func NewEPubBuilder(outputDir string) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir}
}

// CreateEPub compiles the downloaded chapters of a comic into a single EPub
// file. Pages follow the order recorded in each chapter's download info.
func (p *EPubBuilder) CreateEPub(comic *data.LibraryComic, chapters []*data.LibraryChapter) (string, error) {
	var downloaded []*data.LibraryChapter
	for _, chapter := range chapters {
		if chapter.Downloaded && chapter.FilePath != "" {
			downloaded = append(downloaded, chapter)
		}
	}
	if len(downloaded) == 0 {
		return "", fmt.Errorf("no chapters to compile")
	}

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	sort.SliceStable(downloaded, func(i, j int) bool {
		return downloaded[i].Position < downloaded[j].Position
	})

	e, err := epub.NewEpub(comic.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}
	e.SetAuthor("CopyManga")
	e.SetLang("zh")

	for _, chapter := range downloaded {
		if err := p.addChapterToEPub(e, chapter); err != nil {
			return "", fmt.Errorf("failed to add chapter %s: %w", chapter.Name, err)
		}
	}

	outputPath := filepath.Join(p.outputDir, utils.SanitizeFilename(comic.Name)+".epub")
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}

	return outputPath, nil
}

func (p *EPubBuilder) addChapterToEPub(e *epub.Epub, chapter *data.LibraryChapter) error {
	info, err := data.ReadDownloadInfo(chapter.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read download info: %w", err)
	}

	files := info.PageFiles()
	if len(files) == 0 {
		return fmt.Errorf("no pages recorded for chapter")
	}

	var htmlContent strings.Builder
	htmlContent.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(chapter.Name)))

	for i, name := range files {
		imgPath := filepath.Join(chapter.FilePath, name)
		internalName := fmt.Sprintf("%s-%s", chapter.ID, name)

		internalPath, err := e.AddImage(imgPath, internalName)
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", name, err)
		}

		htmlContent.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
	}

	if _, err := e.AddSection(htmlContent.String(), chapter.Name, "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}
	return nil
}
