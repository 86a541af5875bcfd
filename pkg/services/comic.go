package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/data"
)

// Report is the outcome of a continue-on-error comic download.
type Report struct {
	Succeeded []data.Chapter
	Failed    []ChapterFailure
}

type ChapterFailure struct {
	Chapter data.Chapter
	Err     error
}

func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// DownloadComic lists every chapter of comic and downloads them one after
// another in listing order. The first chapter that fails aborts the rest.
func (d *Downloader) DownloadComic(ctx context.Context, comic data.Comic, root string) error {
	chapters, err := d.FetchChapters(ctx, comic)
	if err != nil {
		d.setComicStatus(comic, "error")
		return err
	}
	d.Track(comic, chapters, "downloading")

	for _, chapter := range chapters {
		if err := d.downloadChapterWithRetry(ctx, chapter, root); err != nil {
			d.setComicStatus(comic, "partial")
			return fmt.Errorf("chapter %s: %w", chapter.Name, err)
		}
	}

	d.setComicStatus(comic, "completed")
	return nil
}

// DownloadComicReport behaves like DownloadComic but keeps going after a
// failed chapter and reports every outcome. Only a listing failure is
// returned as an error.
func (d *Downloader) DownloadComicReport(ctx context.Context, comic data.Comic, root string) (*Report, error) {
	chapters, err := d.FetchChapters(ctx, comic)
	if err != nil {
		d.setComicStatus(comic, "error")
		return nil, err
	}
	d.Track(comic, chapters, "downloading")

	report := &Report{}
	for _, chapter := range chapters {
		if err := d.downloadChapterWithRetry(ctx, chapter, root); err != nil {
			log.Errorf("failed to download %s: %s", chapter, err)
			report.Failed = append(report.Failed, ChapterFailure{Chapter: chapter, Err: err})
			continue
		}
		report.Succeeded = append(report.Succeeded, chapter)
	}

	if report.OK() {
		d.setComicStatus(comic, "completed")
	} else {
		d.setComicStatus(comic, "partial")
	}
	return report, nil
}

// Download picks DownloadComic or DownloadComicReport based on the
// ContinueOnError option.
func (d *Downloader) Download(ctx context.Context, comic data.Comic, root string) (*Report, error) {
	if !d.opts.ContinueOnError {
		return nil, d.DownloadComic(ctx, comic, root)
	}
	return d.DownloadComicReport(ctx, comic, root)
}
