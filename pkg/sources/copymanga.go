package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/utils"
)

const (
	SearchPageSize    = 20
	RecommendPageSize = 60
	CategoryPageSize  = 50

	recommendType = "3200102"
	platform      = "3"
)

type CopyMangaConfig struct {
	APIURL  string
	SiteURL string
	Session utils.SessionConfig
}

func DefaultCopyMangaConfig() CopyMangaConfig {
	return CopyMangaConfig{
		APIURL:  "https://api.copymanga.site",
		SiteURL: "https://copymanga.site",
		Session: utils.SessionConfig{UserAgent: utils.DefaultUserAgent},
	}
}

// CopyManga reads chapter data from the JSON API and browses the catalog
// by scraping the public site.
type CopyManga struct {
	cfg CopyMangaConfig
}

func NewCopyManga(cfg CopyMangaConfig) *CopyManga {
	return &CopyManga{cfg: cfg}
}

func (m *CopyManga) NewSession() Session {
	return &copyMangaSession{api: utils.NewAPI(m.cfg.APIURL, m.cfg.Session)}
}

type copyMangaSession struct {
	api *utils.API
}

func (s *copyMangaSession) Close() {
	s.api.Close()
}

func (s *copyMangaSession) ListChapters(ctx context.Context, comicID string, offset, limit int) (*ChapterListing, error) {
	params := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"offset":   {strconv.Itoa(offset)},
		"platform": {platform},
	}
	var results struct {
		List []struct {
			UUID string `json:"uuid"`
			Name string `json:"name"`
		} `json:"list"`
		Total int `json:"total"`
	}
	path := fmt.Sprintf("/api/v3/comic/%s/group/default/chapters", url.PathEscape(comicID))
	if err := s.api.Get(ctx, path, params, &results); err != nil {
		return nil, err
	}

	listing := &ChapterListing{Total: results.Total, Items: make([]ChapterEntry, len(results.List))}
	for i, item := range results.List {
		listing.Items[i] = ChapterEntry{ID: item.UUID, Name: item.Name}
	}
	return listing, nil
}

func (s *copyMangaSession) GetChapterDetail(ctx context.Context, comicID, chapterID string) (*ChapterDetail, error) {
	var results struct {
		Chapter struct {
			Contents []struct {
				URL string `json:"url"`
			} `json:"contents"`
			Words []int `json:"words"`
		} `json:"chapter"`
	}
	path := fmt.Sprintf("/api/v3/comic/%s/chapter2/%s", url.PathEscape(comicID), url.PathEscape(chapterID))
	if err := s.api.Get(ctx, path, url.Values{"platform": {platform}}, &results); err != nil {
		return nil, err
	}

	detail := &ChapterDetail{
		Pages: make([]string, len(results.Chapter.Contents)),
		Order: results.Chapter.Words,
	}
	for i, content := range results.Chapter.Contents {
		detail.Pages[i] = content.URL
	}
	return detail, nil
}

func (s *copyMangaSession) FetchBytes(ctx context.Context, pageURL string) ([]byte, error) {
	return s.api.GetBytes(ctx, pageURL, nil)
}

func (m *CopyManga) searchResults(ctx context.Context, keyword string, offset int) ([]data.Comic, int, error) {
	api := utils.NewAPI(m.cfg.APIURL, m.cfg.Session)
	defer api.Close()

	params := url.Values{
		"format":   {"json"},
		"limit":    {strconv.Itoa(SearchPageSize)},
		"offset":   {strconv.Itoa(offset)},
		"platform": {platform},
		"q":        {keyword},
	}
	var results struct {
		List []struct {
			PathWord string `json:"path_word"`
			Name     string `json:"name"`
		} `json:"list"`
		Total int `json:"total"`
	}
	if err := api.Get(ctx, "/api/v3/search/comic", params, &results); err != nil {
		return nil, 0, err
	}

	comics := make([]data.Comic, len(results.List))
	for i, item := range results.List {
		comics[i] = data.Comic{ID: item.PathWord, Name: item.Name}
	}
	return comics, results.Total, nil
}

func (m *CopyManga) SearchPages(ctx context.Context, keyword string) (int, error) {
	_, total, err := m.searchResults(ctx, keyword, 0)
	if err != nil {
		return 0, err
	}
	return pageCount(total, SearchPageSize), nil
}

func (m *CopyManga) Search(ctx context.Context, keyword string, page int) ([]data.Comic, error) {
	comics, _, err := m.searchResults(ctx, keyword, SearchPageSize*(page-1))
	return comics, err
}

func (m *CopyManga) document(ctx context.Context, path string, params url.Values) (*goquery.Document, error) {
	site := utils.NewAPI(m.cfg.SiteURL, m.cfg.Session)
	defer site.Close()
	return site.GetDocument(ctx, path, params)
}

func (m *CopyManga) RecommendPages(ctx context.Context) (int, error) {
	doc, err := m.document(ctx, "/recommend", nil)
	if err != nil {
		return 0, err
	}
	return totalPages(doc)
}

func (m *CopyManga) Recommend(ctx context.Context, page int) ([]data.Comic, error) {
	params := url.Values{
		"type":   {recommendType},
		"offset": {strconv.Itoa(RecommendPageSize * (page - 1))},
		"limit":  {strconv.Itoa(RecommendPageSize)},
	}
	doc, err := m.document(ctx, "/recommend", params)
	if err != nil {
		return nil, err
	}
	return comicsFromLinks(doc.Find("div.correlationList div#comic div.exemptComic_Item div.exemptComicItem-txt > a"), "p")
}

func (m *CopyManga) CategoryPages(ctx context.Context, theme string) (int, error) {
	doc, err := m.document(ctx, "/comics", url.Values{"theme": {theme}})
	if err != nil {
		return 0, err
	}
	return totalPages(doc)
}

func (m *CopyManga) Category(ctx context.Context, theme string, page int) ([]data.Comic, error) {
	params := url.Values{
		"theme":  {theme},
		"offset": {strconv.Itoa(CategoryPageSize * (page - 1))},
		"limit":  {strconv.Itoa(CategoryPageSize)},
	}
	doc, err := m.document(ctx, "/comics", params)
	if err != nil {
		return nil, err
	}
	return comicsFromLinks(doc.Find("div.exemptComicList div.exemptComic-box div.exemptComic_Item div.exemptComicItem-txt > a"), "p")
}

func (m *CopyManga) Leaderboard(ctx context.Context) ([]data.Comic, error) {
	doc, err := m.document(ctx, "/rank", nil)
	if err != nil {
		return nil, err
	}
	return comicsFromLinks(doc.Find("ul.ranking-all li.col-4 div.ranking-all-topThree-txt > a"), "p.threeLines")
}

func (m *CopyManga) GetComic(ctx context.Context, id string) (*data.Comic, error) {
	doc, err := m.document(ctx, "/comic/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(doc.Find("div.comicParticulars-title-right ul li").First().Find("h6").First().Text())
	if name == "" {
		return nil, fmt.Errorf("comic %s: name not found in page", id)
	}
	return &data.Comic{ID: id, Name: name}, nil
}

// comicsFromLinks collects hrefs and names as two separate lists, the same
// way the listing pages expose them, and pairs them up.
func comicsFromLinks(links *goquery.Selection, nameSelector string) ([]data.Comic, error) {
	var ids, names []string
	links.Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			ids = append(ids, strings.TrimPrefix(href, "/comic/"))
		}
	})
	links.Find(nameSelector).Each(func(_ int, p *goquery.Selection) {
		names = append(names, strings.TrimSpace(p.Text()))
	})
	return ZipComics(ids, names)
}

// ZipComics pairs ids with names. Mismatched lengths fail before any Comic
// is built.
func ZipComics(ids, names []string) ([]data.Comic, error) {
	if len(ids) != len(names) {
		return nil, &utils.DataShapeError{What: "comic ids vs names", Want: len(ids), Got: len(names)}
	}
	comics := make([]data.Comic, len(ids))
	for i := range ids {
		comics[i] = data.Comic{ID: ids[i], Name: names[i]}
	}
	return comics, nil
}

// totalPages reads the page count from the second "page-total" item of the
// pagination bar, e.g. "/12".
func totalPages(doc *goquery.Document) (int, error) {
	item := doc.Find("ul.page-all li.page-total").Eq(1)
	if item.Length() == 0 {
		return 1, nil
	}
	text := strings.TrimFunc(strings.TrimSpace(item.Text()), func(r rune) bool { return !unicode.IsDigit(r) })
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("failed to parse total pages %q: %w", item.Text(), err)
	}
	return n, nil
}

func pageCount(total, size int) int {
	if total%size == 0 {
		return total / size
	}
	return total/size + 1
}
