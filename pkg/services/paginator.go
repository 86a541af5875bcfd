package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/sources"
)

// DefaultChapterPageSize is the listing page size used for chapters.
const DefaultChapterPageSize = 500

// extraPages returns how many listing requests follow the first one. When
// total is an exact multiple of size the first page already counts as one
// of the total/size pages.
func extraPages(total, size int) int {
	if total <= size {
		return 0
	}
	if total%size == 0 {
		return total/size - 1
	}
	return total / size
}

// FetchChapters collects every chapter of a comic in server order. The whole
// accumulation holds a single limiter permit and one session; any failed
// page aborts it without a partial result.
func (d *Downloader) FetchChapters(ctx context.Context, comic data.Comic) ([]data.Chapter, error) {
	var chapters []data.Chapter
	err := d.limiter.Do(ctx, func() error {
		session := d.source.NewSession()
		defer session.Close()

		entries, err := fetchAllChapters(ctx, session, comic.ID, d.pageSize)
		if err != nil {
			return err
		}
		chapters = make([]data.Chapter, len(entries))
		for i, entry := range entries {
			chapters[i] = comic.NewChapter(entry.ID, entry.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters of %s: %w", comic.Name, err)
	}

	log.Debugf("Fetched %d chapters of %s", len(chapters), comic.Name)
	return chapters, nil
}

func fetchAllChapters(ctx context.Context, session sources.Session, comicID string, size int) ([]sources.ChapterEntry, error) {
	first, err := session.ListChapters(ctx, comicID, 0, size)
	if err != nil {
		return nil, err
	}
	entries := append([]sources.ChapterEntry(nil), first.Items...)

	extra := extraPages(first.Total, size)
	for k := 0; k < extra; k++ {
		page, err := session.ListChapters(ctx, comicID, (k+1)*size, size)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Items...)
	}
	return entries, nil
}
