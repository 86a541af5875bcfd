package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/integrations"
	"github.com/kerbaras/copycomic/pkg/limiter"
	"github.com/kerbaras/copycomic/pkg/sources"
	"github.com/kerbaras/copycomic/pkg/utils"
)

// DownloadProgress represents the progress of a download operation
type DownloadProgress struct {
	ComicID     string
	ChapterID   string
	ChapterName string
	CurrentPage int
	TotalPages  int
	Status      string // "downloading", "complete", "error"
	Error       error
}

// Repository records download results in the local library.
type Repository interface {
	SaveComic(comic *data.LibraryComic) error
	SaveChapter(chapter *data.LibraryChapter) error
	UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error
}

type Options struct {
	PageSize int
	Order    OrderStrategy
	Images   integrations.ImageSettings

	// ContinueOnError and MaxRetries only affect DownloadComicReport and
	// the retries of DownloadComic.
	ContinueOnError bool
	MaxRetries      int
	RetryCooldown   time.Duration
}

// Downloader runs listing accumulations and chapter downloads, each under
// one permit of the shared limiter.
type Downloader struct {
	source       sources.Source
	repo         Repository
	limiter      *limiter.Limiter
	images       *integrations.ImageProcessor
	order        OrderStrategy
	pageSize     int
	opts         Options
	progressChan chan DownloadProgress
	closeOnce    sync.Once
}

// NewDownloader creates a new Downloader instance. repo may be nil when no
// library is kept.
func NewDownloader(source sources.Source, repo Repository, lim *limiter.Limiter, opts Options) *Downloader {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultChapterPageSize
	}
	if opts.Order == nil {
		opts.Order = PermutationOrder{}
	}
	if lim == nil {
		lim = limiter.New(limiter.DefaultCeiling)
	}
	return &Downloader{
		source:       source,
		repo:         repo,
		limiter:      lim,
		images:       integrations.NewImageProcessor(opts.Images),
		order:        opts.Order,
		pageSize:     opts.PageSize,
		opts:         opts,
		progressChan: make(chan DownloadProgress, 100),
	}
}

// GetProgressChannel returns the channel for receiving download progress updates
func (d *Downloader) GetProgressChannel() <-chan DownloadProgress {
	return d.progressChan
}

// ChapterDir returns the directory a chapter is written to. An empty root
// falls back to the comic name.
func ChapterDir(chapter data.Chapter, root string) string {
	if root == "" {
		root = utils.SanitizeFilename(chapter.ComicName)
	}
	return filepath.Join(root, utils.SanitizeFilename(chapter.Name))
}

// DownloadChapter writes the download info and every page of one chapter
// into ChapterDir(chapter, root). The first failure aborts the chapter and
// leaves already written pages in place.
func (d *Downloader) DownloadChapter(ctx context.Context, chapter data.Chapter, root string) error {
	dir := ChapterDir(chapter, root)
	if err := ensureDir(dir); err != nil {
		return err
	}

	log.Debugf("Trying to download: %s", chapter)
	err := d.limiter.Do(ctx, func() error {
		return d.downloadChapter(ctx, chapter, dir)
	})
	if err != nil {
		d.sendProgress(DownloadProgress{
			ComicID:     chapter.ComicID,
			ChapterID:   chapter.ID,
			ChapterName: chapter.Name,
			Status:      "error",
			Error:       err,
		})
		return err
	}

	if d.repo != nil {
		path, err := filepath.Abs(dir)
		if err != nil {
			path = dir
		}
		if err := d.repo.UpdateChapterStatus(chapter.ID, true, path); err != nil {
			log.Warnf("failed to record chapter %s: %s", chapter, err)
		}
	}
	log.Infof("Downloaded: %s", chapter)
	return nil
}

func (d *Downloader) downloadChapter(ctx context.Context, chapter data.Chapter, dir string) error {
	session := d.source.NewSession()
	defer session.Close()

	d.sendProgress(DownloadProgress{
		ComicID:     chapter.ComicID,
		ChapterID:   chapter.ID,
		ChapterName: chapter.Name,
		Status:      "downloading",
	})

	detail, err := session.GetChapterDetail(ctx, chapter.ComicID, chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}

	pages, err := d.order.Resolve(detail)
	if err != nil {
		return err
	}

	info := data.DownloadInfo{
		ComicName:   chapter.ComicName,
		ComicID:     chapter.ComicID,
		ChapterName: chapter.Name,
		ChapterID:   chapter.ID,
		Pages:       len(detail.Pages),
		Orders:      pageOrders(pages),
	}
	if err := data.WriteDownloadInfo(dir, info); err != nil {
		return fmt.Errorf("failed to write download info: %w", err)
	}

	if len(pages) == 0 {
		log.Warnf("no pages found for chapter %s", chapter)
	}

	for i, page := range pages {
		raw, err := session.FetchBytes(ctx, page.URL)
		if err != nil {
			return fmt.Errorf("failed to download page %d: %w", page.Order, err)
		}

		encoded, err := d.images.ProcessData(raw)
		if err != nil {
			return &utils.DecodeError{Source: page.URL, Err: err}
		}

		name := filepath.Join(dir, data.PageFileName(page.Order))
		if err := os.WriteFile(name, encoded, 0644); err != nil {
			return fmt.Errorf("failed to save page %d: %w", page.Order, err)
		}

		log.Debugf("    Downloaded: %s - Page %d", chapter, page.Order)
		d.sendProgress(DownloadProgress{
			ComicID:     chapter.ComicID,
			ChapterID:   chapter.ID,
			ChapterName: chapter.Name,
			CurrentPage: i + 1,
			TotalPages:  len(pages),
			Status:      "downloading",
		})
	}

	d.sendProgress(DownloadProgress{
		ComicID:     chapter.ComicID,
		ChapterID:   chapter.ID,
		ChapterName: chapter.Name,
		CurrentPage: len(pages),
		TotalPages:  len(pages),
		Status:      "complete",
	})
	return nil
}

// ensureDir creates dir when missing. An existing non-directory at that path
// is a FilesystemError.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &utils.FilesystemError{Path: dir}
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Track saves the comic and its chapter list to the library so later chapter
// downloads can be recorded against it.
func (d *Downloader) Track(comic data.Comic, chapters []data.Chapter, status string) {
	if d.repo == nil {
		return
	}
	if err := d.repo.SaveComic(&data.LibraryComic{ID: comic.ID, Name: comic.Name, Status: status}); err != nil {
		log.Warnf("failed to record comic %s: %s", comic.Name, err)
		return
	}
	for i, ch := range chapters {
		err := d.repo.SaveChapter(&data.LibraryChapter{ID: ch.ID, ComicID: ch.ComicID, Name: ch.Name, Position: i})
		if err != nil {
			log.Warnf("failed to record chapter %s: %s", ch, err)
		}
	}
}

func (d *Downloader) setComicStatus(comic data.Comic, status string) {
	if d.repo == nil {
		return
	}
	if err := d.repo.SaveComic(&data.LibraryComic{ID: comic.ID, Name: comic.Name, Status: status}); err != nil {
		log.Warnf("failed to record comic %s: %s", comic.Name, err)
	}
}

// downloadChapterWithRetry retries a failing chapter up to MaxRetries times,
// waiting RetryCooldown * 2^try between attempts.
func (d *Downloader) downloadChapterWithRetry(ctx context.Context, chapter data.Chapter, root string) error {
	err := d.DownloadChapter(ctx, chapter, root)
	for tries := 0; err != nil && tries < d.opts.MaxRetries; tries++ {
		if !retryable(err) {
			return err
		}
		log.Warnf("Retry %d/%d for %s: %s", tries+1, d.opts.MaxRetries, chapter, err)
		if waitErr := d.waitForRetry(ctx, tries); waitErr != nil {
			return err
		}
		err = d.DownloadChapter(ctx, chapter, root)
	}
	return err
}

// retryable reports whether a failed chapter could succeed on another
// attempt. A bad destination, a malformed listing or an undecodable page
// fails the same way every time.
func retryable(err error) bool {
	var (
		fsErr     *utils.FilesystemError
		shapeErr  *utils.DataShapeError
		decodeErr *utils.DecodeError
	)
	return !errors.As(err, &fsErr) && !errors.As(err, &shapeErr) && !errors.As(err, &decodeErr)
}

func (d *Downloader) waitForRetry(ctx context.Context, tries int) error {
	cooldown := time.Duration(float64(d.opts.RetryCooldown) * math.Pow(2, float64(tries)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cooldown):
		return nil
	}
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress DownloadProgress) {
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close closes the progress channel. No download may run afterwards.
func (d *Downloader) Close() {
	d.closeOnce.Do(func() { close(d.progressChan) })
}
