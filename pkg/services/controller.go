package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/config"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/integrations"
	"github.com/kerbaras/copycomic/pkg/limiter"
	"github.com/kerbaras/copycomic/pkg/sources"
	"github.com/kerbaras/copycomic/pkg/utils"
)

// ComicController owns the shared limiter and hands it to every component
// that reaches the remote catalog.
type ComicController struct {
	cfg        *config.Config
	source     sources.Source
	repo       *data.Repository
	limiter    *limiter.Limiter
	downloader *Downloader
	catalog    *Catalog
}

// NewComicController builds the CopyManga source and opens the library
// database named in cfg. An empty database path disables the library.
func NewComicController(cfg *config.Config) (*ComicController, error) {
	source := sources.NewCopyManga(sources.CopyMangaConfig{
		APIURL:  cfg.APIURL,
		SiteURL: cfg.SiteURL,
		Session: utils.SessionConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			InsecureTLS: cfg.InsecureTLS,
		},
	})

	var repo *data.Repository
	if cfg.Database.Path != "" {
		var err error
		repo, err = data.NewDuckDBRepository(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open library: %w", err)
		}
	}

	c, err := NewComicControllerWithSource(cfg, source, repo)
	if err != nil && repo != nil {
		repo.Close()
	}
	return c, err
}

// NewComicControllerWithSource wires the services around an existing source
// and library. repo may be nil.
func NewComicControllerWithSource(cfg *config.Config, source sources.Source, repo *data.Repository) (*ComicController, error) {
	order, err := NewOrderStrategy(cfg.OrderStrategy)
	if err != nil {
		return nil, err
	}

	lim := limiter.New(cfg.Concurrency)

	// A nil *data.Repository must not reach the downloader as a non-nil
	// interface.
	var tracker Repository
	if repo != nil {
		tracker = repo
	}

	downloader := NewDownloader(source, tracker, lim, Options{
		PageSize: cfg.ChapterPageSize,
		Order:    order,
		Images: integrations.ImageSettings{
			MaxWidth:  cfg.Image.MaxWidth,
			MaxHeight: cfg.Image.MaxHeight,
			Grayscale: cfg.Image.Grayscale,
		},
		ContinueOnError: cfg.ContinueOnError,
		MaxRetries:      cfg.MaxRetries,
		RetryCooldown:   cfg.RetryCooldown,
	})

	return &ComicController{
		cfg:        cfg,
		source:     source,
		repo:       repo,
		limiter:    lim,
		downloader: downloader,
		catalog:    NewCatalog(source, lim),
	}, nil
}

func (c *ComicController) Catalog() *Catalog {
	return c.catalog
}

func (c *ComicController) Downloader() *Downloader {
	return c.downloader
}

// GetProgressChannel returns the progress updates of every download.
func (c *ComicController) GetProgressChannel() <-chan DownloadProgress {
	return c.downloader.GetProgressChannel()
}

func (c *ComicController) comic(ctx context.Context, comicID string) (data.Comic, error) {
	comic, err := c.catalog.GetComic(ctx, comicID)
	if err != nil {
		return data.Comic{}, fmt.Errorf("failed to get comic %s: %w", comicID, err)
	}
	if comic == nil {
		return data.Comic{}, fmt.Errorf("comic %s not found", comicID)
	}
	return *comic, nil
}

// Chapters lists every chapter of a comic.
func (c *ComicController) Chapters(ctx context.Context, comicID string) (data.Comic, []data.Chapter, error) {
	comic, err := c.comic(ctx, comicID)
	if err != nil {
		return data.Comic{}, nil, err
	}
	chapters, err := c.downloader.FetchChapters(ctx, comic)
	return comic, chapters, err
}

// DownloadComic downloads every chapter of a comic into root. The report is
// nil unless continue_on_error is set.
func (c *ComicController) DownloadComic(ctx context.Context, comicID, root string) (*Report, error) {
	comic, err := c.comic(ctx, comicID)
	if err != nil {
		return nil, err
	}
	if root == "" {
		root = c.cfg.OutputDir
	}
	return c.downloader.Download(ctx, comic, root)
}

// DownloadChapter downloads a single chapter of a comic into root.
func (c *ComicController) DownloadChapter(ctx context.Context, comicID, chapterID, root string) error {
	comic, chapters, err := c.Chapters(ctx, comicID)
	if err != nil {
		return err
	}
	if root == "" {
		root = c.cfg.OutputDir
	}

	for _, chapter := range chapters {
		if chapter.ID == chapterID {
			c.downloader.Track(comic, chapters, c.libraryStatus(comic.ID, "partial"))
			return c.downloader.DownloadChapter(ctx, chapter, root)
		}
	}
	return fmt.Errorf("chapter %s not found in %s", chapterID, comic.Name)
}

// libraryStatus returns the recorded status of a comic, or fallback when the
// comic is not in the library yet.
func (c *ComicController) libraryStatus(comicID, fallback string) string {
	if c.repo == nil {
		return fallback
	}
	comic, err := c.repo.GetComic(comicID)
	if err != nil || comic == nil || comic.Status == "" {
		return fallback
	}
	return comic.Status
}

// Library lists the comics recorded in the local library.
func (c *ComicController) Library() ([]*data.LibraryComic, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("library is disabled")
	}
	return c.repo.ListComics()
}

// LibraryStats returns the total and downloaded chapter counts of a comic.
func (c *ComicController) LibraryStats(comicID string) (int, int, error) {
	if c.repo == nil {
		return 0, 0, fmt.Errorf("library is disabled")
	}
	_, total, downloaded, err := c.repo.GetComicWithChapterCount(comicID)
	return total, downloaded, err
}

// DeleteComic removes a comic and its chapters from the library. Files on
// disk are left alone.
func (c *ComicController) DeleteComic(comicID string) error {
	if c.repo == nil {
		return fmt.Errorf("library is disabled")
	}
	return c.repo.DeleteComic(comicID)
}

// ExportEPub compiles the downloaded chapters of a library comic into an
// EPub file under outputDir.
func (c *ComicController) ExportEPub(comicID, outputDir string) (string, error) {
	if c.repo == nil {
		return "", fmt.Errorf("library is disabled")
	}
	comic, err := c.repo.GetComic(comicID)
	if err != nil {
		return "", err
	}
	if comic == nil {
		return "", fmt.Errorf("comic %s is not in the library", comicID)
	}
	chapters, err := c.repo.GetChapters(comicID)
	if err != nil {
		return "", err
	}

	log.Infof("Building EPub for %s", comic.Name)
	return integrations.NewEPubBuilder(outputDir).CreateEPub(comic, chapters)
}

// Close closes the progress channel and the library.
func (c *ComicController) Close() {
	c.downloader.Close()
	if c.repo != nil {
		if err := c.repo.Close(); err != nil {
			log.Warnf("failed to close library: %s", err)
		}
	}
}
