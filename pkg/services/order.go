package services

import (
	"fmt"

	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/sources"
	"github.com/kerbaras/copycomic/pkg/utils"
)

// OrderStrategy decides the file name of every page of a chapter. Resolve
// returns the pages in the sequence they are downloaded; Page.Order is the
// number used for the file name.
type OrderStrategy interface {
	Name() string
	Resolve(detail *sources.ChapterDetail) ([]data.Page, error)
}

const (
	OrderPermutation = "permutation"
	OrderSequential  = "sequential"
)

func NewOrderStrategy(name string) (OrderStrategy, error) {
	switch name {
	case "", OrderPermutation:
		return PermutationOrder{}, nil
	case OrderSequential:
		return SequentialOrder{}, nil
	default:
		return nil, fmt.Errorf("unknown order strategy %q", name)
	}
}

// PermutationOrder names the page at URL position i after order[i], taken
// verbatim from the server. Without an order list it numbers pages 1..N.
type PermutationOrder struct{}

func (PermutationOrder) Name() string { return OrderPermutation }

func (PermutationOrder) Resolve(detail *sources.ChapterDetail) ([]data.Page, error) {
	if detail.Order == nil {
		return sequentialPages(detail.Pages), nil
	}

	n := len(detail.Pages)
	if len(detail.Order) != n {
		return nil, &utils.DataShapeError{What: "page orders vs page urls", Want: n, Got: len(detail.Order)}
	}

	seen := make([]bool, n)
	pages := make([]data.Page, n)
	for i, order := range detail.Order {
		if order < 0 || order >= n || seen[order] {
			return nil, &utils.DataShapeError{What: fmt.Sprintf("page order %d at position %d", order, i), Want: n, Got: len(detail.Order)}
		}
		seen[order] = true
		pages[i] = data.Page{URL: detail.Pages[i], Order: order}
	}
	return pages, nil
}

// SequentialOrder ignores any server order and numbers pages 1..N in URL
// list order.
type SequentialOrder struct{}

func (SequentialOrder) Name() string { return OrderSequential }

func (SequentialOrder) Resolve(detail *sources.ChapterDetail) ([]data.Page, error) {
	return sequentialPages(detail.Pages), nil
}

func sequentialPages(urls []string) []data.Page {
	pages := make([]data.Page, len(urls))
	for i, u := range urls {
		pages[i] = data.Page{URL: u, Order: i + 1}
	}
	return pages
}

func pageOrders(pages []data.Page) []int {
	orders := make([]int, len(pages))
	for i, p := range pages {
		orders[i] = p.Order
	}
	return orders
}
