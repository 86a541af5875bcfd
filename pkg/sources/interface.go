package sources

import (
	"context"

	"github.com/kerbaras/copycomic/pkg/data"
)

type ChapterEntry struct {
	ID   string
	Name string
}

// ChapterListing is one page of a comic's chapter list. Total is the size
// of the whole list as declared by the server.
type ChapterListing struct {
	Items []ChapterEntry
	Total int
}

// ChapterDetail holds the page URLs of a chapter. Order, when not nil, is
// the display permutation supplied by the server.
type ChapterDetail struct {
	Pages []string
	Order []int
}

// Session is bound to a single top-level operation and owns its own
// connection pool.
type Session interface {
	ListChapters(ctx context.Context, comicID string, offset, limit int) (*ChapterListing, error)
	GetChapterDetail(ctx context.Context, comicID, chapterID string) (*ChapterDetail, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	Close()
}

type Source interface {
	NewSession() Session

	SearchPages(ctx context.Context, keyword string) (int, error)
	Search(ctx context.Context, keyword string, page int) ([]data.Comic, error)
	RecommendPages(ctx context.Context) (int, error)
	Recommend(ctx context.Context, page int) ([]data.Comic, error)
	CategoryPages(ctx context.Context, theme string) (int, error)
	Category(ctx context.Context, theme string, page int) ([]data.Comic, error)
	Leaderboard(ctx context.Context) ([]data.Comic, error)
	GetComic(ctx context.Context, id string) (*data.Comic, error)
}
