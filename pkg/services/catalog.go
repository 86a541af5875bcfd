package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/limiter"
	"github.com/kerbaras/copycomic/pkg/sources"
)

var ErrPageOutOfRange = errors.New("page out of range")

// Catalog browses comics. Every request runs under one limiter permit.
type Catalog struct {
	source  sources.Source
	limiter *limiter.Limiter
}

func NewCatalog(source sources.Source, lim *limiter.Limiter) *Catalog {
	return &Catalog{source: source, limiter: lim}
}

// Listing is a paged comic list whose page count is known up front.
type Listing struct {
	TotalPages int

	fetch   func(ctx context.Context, page int) ([]data.Comic, error)
	limiter *limiter.Limiter
}

// Comics returns page (1-based) of the listing.
func (l *Listing) Comics(ctx context.Context, page int) ([]data.Comic, error) {
	if page < 1 || page > l.TotalPages {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrPageOutOfRange, page, l.TotalPages)
	}
	var comics []data.Comic
	err := l.limiter.Do(ctx, func() error {
		var err error
		comics, err = l.fetch(ctx, page)
		return err
	})
	return comics, err
}

func (c *Catalog) listing(ctx context.Context, pages func(context.Context) (int, error), fetch func(context.Context, int) ([]data.Comic, error)) (*Listing, error) {
	var total int
	err := c.limiter.Do(ctx, func() error {
		var err error
		total, err = pages(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Listing{TotalPages: total, fetch: fetch, limiter: c.limiter}, nil
}

func (c *Catalog) Search(ctx context.Context, keyword string) (*Listing, error) {
	log.Debugf("Trying to search keyword %s", keyword)
	return c.listing(ctx,
		func(ctx context.Context) (int, error) { return c.source.SearchPages(ctx, keyword) },
		func(ctx context.Context, page int) ([]data.Comic, error) { return c.source.Search(ctx, keyword, page) },
	)
}

func (c *Catalog) Recommend(ctx context.Context) (*Listing, error) {
	log.Debug("Trying to fetch recommended comics")
	return c.listing(ctx, c.source.RecommendPages, c.source.Recommend)
}

func (c *Catalog) Category(ctx context.Context, theme string) (*Listing, error) {
	log.Debugf("Trying to fetch comics by category %s", theme)
	return c.listing(ctx,
		func(ctx context.Context) (int, error) { return c.source.CategoryPages(ctx, theme) },
		func(ctx context.Context, page int) ([]data.Comic, error) { return c.source.Category(ctx, theme, page) },
	)
}

func (c *Catalog) Leaderboard(ctx context.Context) ([]data.Comic, error) {
	var comics []data.Comic
	err := c.limiter.Do(ctx, func() error {
		var err error
		comics, err = c.source.Leaderboard(ctx)
		return err
	})
	return comics, err
}

func (c *Catalog) GetComic(ctx context.Context, id string) (*data.Comic, error) {
	log.Debugf("Trying to fetch comic by id %s", id)
	var comic *data.Comic
	err := c.limiter.Do(ctx, func() error {
		var err error
		comic, err = c.source.GetComic(ctx, id)
		return err
	})
	return comic, err
}
