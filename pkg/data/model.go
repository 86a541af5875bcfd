package data

import "fmt"

type Comic struct {
	ID   string
	Name string
}

// Chapter carries the comic name so output paths can be built without the
// parent Comic at hand.
type Chapter struct {
	ComicID   string
	ComicName string
	ID        string
	Name      string
}

func (c Comic) NewChapter(id, name string) Chapter {
	return Chapter{ComicID: c.ID, ComicName: c.Name, ID: id, Name: name}
}

func (c Chapter) String() string {
	return fmt.Sprintf("%s - %s", c.ComicName, c.Name)
}

// Page only lives for the duration of a chapter download.
type Page struct {
	URL   string
	Order int
}

// DownloadInfo describes one downloaded chapter. It is written to disk
// before any page so that partial downloads can be inspected.
type DownloadInfo struct {
	ComicName   string
	ComicID     string
	ChapterName string
	ChapterID   string
	Pages       int
	Orders      []int
}

// LibraryComic is a comic as recorded in the local library.
type LibraryComic struct {
	ID     string
	Name   string
	Status string // "downloading", "completed", "partial", "error"
}

// LibraryChapter is a chapter as recorded in the local library.
type LibraryChapter struct {
	ID         string
	ComicID    string
	Name       string
	Position   int
	Downloaded bool
	FilePath   string // Directory holding the chapter pages
}
