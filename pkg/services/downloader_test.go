package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerbaras/copycomic/pkg/data"
	"github.com/kerbaras/copycomic/pkg/limiter"
	"github.com/kerbaras/copycomic/pkg/sources"
	"github.com/kerbaras/copycomic/pkg/utils"
)

// Mock implementations for testing

type mockSession struct {
	listChaptersFunc     func(comicID string, offset, limit int) (*sources.ChapterListing, error)
	getChapterDetailFunc func(comicID, chapterID string) (*sources.ChapterDetail, error)
	fetchBytesFunc       func(url string) ([]byte, error)
	closed               atomic.Bool
}

func (m *mockSession) ListChapters(ctx context.Context, comicID string, offset, limit int) (*sources.ChapterListing, error) {
	if m.listChaptersFunc != nil {
		return m.listChaptersFunc(comicID, offset, limit)
	}
	return &sources.ChapterListing{}, nil
}

func (m *mockSession) GetChapterDetail(ctx context.Context, comicID, chapterID string) (*sources.ChapterDetail, error) {
	if m.getChapterDetailFunc != nil {
		return m.getChapterDetailFunc(comicID, chapterID)
	}
	return &sources.ChapterDetail{}, nil
}

func (m *mockSession) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if m.fetchBytesFunc != nil {
		return m.fetchBytesFunc(url)
	}
	return nil, nil
}

func (m *mockSession) Close() {
	m.closed.Store(true)
}

type mockSource struct {
	session            *mockSession
	newSessionCount    int
	searchPagesFunc    func(keyword string) (int, error)
	searchFunc         func(keyword string, page int) ([]data.Comic, error)
	recommendPagesFunc func() (int, error)
	recommendFunc      func(page int) ([]data.Comic, error)
	categoryPagesFunc  func(theme string) (int, error)
	categoryFunc       func(theme string, page int) ([]data.Comic, error)
	leaderboardFunc    func() ([]data.Comic, error)
	getComicFunc       func(id string) (*data.Comic, error)
	mu                 sync.Mutex
}

func (m *mockSource) NewSession() sources.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newSessionCount++
	if m.session == nil {
		return &mockSession{}
	}
	return m.session
}

func (m *mockSource) SearchPages(ctx context.Context, keyword string) (int, error) {
	if m.searchPagesFunc != nil {
		return m.searchPagesFunc(keyword)
	}
	return 0, nil
}

func (m *mockSource) Search(ctx context.Context, keyword string, page int) ([]data.Comic, error) {
	if m.searchFunc != nil {
		return m.searchFunc(keyword, page)
	}
	return nil, nil
}

func (m *mockSource) RecommendPages(ctx context.Context) (int, error) {
	if m.recommendPagesFunc != nil {
		return m.recommendPagesFunc()
	}
	return 0, nil
}

func (m *mockSource) Recommend(ctx context.Context, page int) ([]data.Comic, error) {
	if m.recommendFunc != nil {
		return m.recommendFunc(page)
	}
	return nil, nil
}

func (m *mockSource) CategoryPages(ctx context.Context, theme string) (int, error) {
	if m.categoryPagesFunc != nil {
		return m.categoryPagesFunc(theme)
	}
	return 0, nil
}

func (m *mockSource) Category(ctx context.Context, theme string, page int) ([]data.Comic, error) {
	if m.categoryFunc != nil {
		return m.categoryFunc(theme, page)
	}
	return nil, nil
}

func (m *mockSource) Leaderboard(ctx context.Context) ([]data.Comic, error) {
	if m.leaderboardFunc != nil {
		return m.leaderboardFunc()
	}
	return nil, nil
}

func (m *mockSource) GetComic(ctx context.Context, id string) (*data.Comic, error) {
	if m.getComicFunc != nil {
		return m.getComicFunc(id)
	}
	return nil, nil
}

type mockRepository struct {
	saveComicFunc           func(comic *data.LibraryComic) error
	saveChapterFunc         func(chapter *data.LibraryChapter) error
	updateChapterStatusFunc func(chapterID string, downloaded bool, filePath string) error
}

func (m *mockRepository) SaveComic(comic *data.LibraryComic) error {
	if m.saveComicFunc != nil {
		return m.saveComicFunc(comic)
	}
	return nil
}

func (m *mockRepository) SaveChapter(chapter *data.LibraryChapter) error {
	if m.saveChapterFunc != nil {
		return m.saveChapterFunc(chapter)
	}
	return nil
}

func (m *mockRepository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error {
	if m.updateChapterStatusFunc != nil {
		return m.updateChapterStatusFunc(chapterID, downloaded, filePath)
	}
	return nil
}

// Test helpers

func createTestPNG(t *testing.T) []byte {
	return createColorPNG(t, color.RGBA{R: 200, G: 10, B: 10, A: 255})
}

func createColorPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// pageColor decodes a written page and returns its top-left pixel.
func pageColor(t *testing.T, path string) color.RGBA {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("%s is not a PNG: %v", path, err)
	}
	return color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
}

// pageSession serves a chapter made of urls, each answering with a PNG.
func pageSession(t *testing.T, urls []string, order []int) *mockSession {
	pngData := createTestPNG(t)
	return &mockSession{
		getChapterDetailFunc: func(comicID, chapterID string) (*sources.ChapterDetail, error) {
			return &sources.ChapterDetail{Pages: urls, Order: order}, nil
		},
		fetchBytesFunc: func(url string) ([]byte, error) {
			return pngData, nil
		},
	}
}

var testComic = data.Comic{ID: "test-comic", Name: "Test Comic"}

func TestNewDownloader(t *testing.T) {
	source := &mockSource{}
	repo := &mockRepository{}

	downloader := NewDownloader(source, repo, nil, Options{})
	defer downloader.Close()

	if downloader.source != source {
		t.Error("Downloader source not set correctly")
	}
	if downloader.limiter == nil || downloader.limiter.Ceiling() != limiter.DefaultCeiling {
		t.Error("Downloader limiter should default to the standard ceiling")
	}
	if downloader.pageSize != DefaultChapterPageSize {
		t.Errorf("pageSize = %d, want %d", downloader.pageSize, DefaultChapterPageSize)
	}
	if downloader.order.Name() != OrderPermutation {
		t.Errorf("order = %s, want %s", downloader.order.Name(), OrderPermutation)
	}
	if downloader.GetProgressChannel() == nil {
		t.Error("GetProgressChannel() returned nil")
	}
}

func TestDownloader_DownloadChapter(t *testing.T) {
	urls := []string{"https://img/1", "https://img/2", "https://img/3"}

	t.Run("permutation order", func(t *testing.T) {
		colors := map[string]color.RGBA{
			urls[0]: {R: 255, A: 255},
			urls[1]: {G: 255, A: 255},
			urls[2]: {B: 255, A: 255},
		}
		session := pageSession(t, urls, []int{2, 0, 1})
		var fetched []string
		session.fetchBytesFunc = func(url string) ([]byte, error) {
			fetched = append(fetched, url)
			return createColorPNG(t, colors[url]), nil
		}

		var recordedPath string
		repo := &mockRepository{
			updateChapterStatusFunc: func(chapterID string, downloaded bool, filePath string) error {
				if !downloaded {
					t.Error("expected downloaded to be true")
				}
				recordedPath = filePath
				return nil
			},
		}

		downloader := NewDownloader(&mockSource{session: session}, repo, nil, Options{})
		defer downloader.Close()

		root := t.TempDir()
		chapter := testComic.NewChapter("ch-1", "Chapter 1")
		if err := downloader.DownloadChapter(context.Background(), chapter, root); err != nil {
			t.Fatalf("DownloadChapter() error = %v", err)
		}

		dir := filepath.Join(root, "Chapter 1")
		// URL i is saved as order[i].png
		for i, name := range []string{"2.png", "0.png", "1.png"} {
			if got := pageColor(t, filepath.Join(dir, name)); got != colors[urls[i]] {
				t.Errorf("%s = %v, want the page of %s (%v)", name, got, urls[i], colors[urls[i]])
			}
		}
		if len(fetched) != 3 || fetched[0] != urls[0] || fetched[2] != urls[2] {
			t.Errorf("pages fetched out of URL order: %v", fetched)
		}

		content, err := os.ReadFile(filepath.Join(dir, data.DownloadInfoFile))
		if err != nil {
			t.Fatalf("download info missing: %v", err)
		}
		want := "Comic name: Test Comic\nComic Id: test-comic\nChapter name: Chapter 1\nChapter id: ch-1\nPages: 3\nOrders: [2, 0, 1]"
		if string(content) != want {
			t.Errorf("download info = %q, want %q", content, want)
		}
		if recordedPath != dir {
			t.Errorf("recorded path = %s, want %s", recordedPath, dir)
		}
		if !session.closed.Load() {
			t.Error("session should be closed after the chapter")
		}
	})

	t.Run("sequential order", func(t *testing.T) {
		session := pageSession(t, urls, []int{2, 0, 1})
		downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{Order: SequentialOrder{}})
		defer downloader.Close()

		root := t.TempDir()
		chapter := testComic.NewChapter("ch-1", "Chapter 1")
		if err := downloader.DownloadChapter(context.Background(), chapter, root); err != nil {
			t.Fatalf("DownloadChapter() error = %v", err)
		}

		dir := filepath.Join(root, "Chapter 1")
		for _, name := range []string{"1.png", "2.png", "3.png"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("expected %s to exist: %v", name, err)
			}
		}
		info, err := data.ReadDownloadInfo(dir)
		if err != nil {
			t.Fatalf("ReadDownloadInfo() error = %v", err)
		}
		if fmt.Sprint(info.Orders) != "[1 2 3]" {
			t.Errorf("orders = %v, want [1 2 3]", info.Orders)
		}
	})

	t.Run("failure mid chapter keeps earlier pages", func(t *testing.T) {
		session := pageSession(t, urls, nil)
		pngData := createTestPNG(t)
		session.fetchBytesFunc = func(url string) ([]byte, error) {
			if url == urls[1] {
				return nil, &utils.TransportError{StatusCode: 404, URL: url}
			}
			return pngData, nil
		}

		downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{})
		defer downloader.Close()

		root := t.TempDir()
		chapter := testComic.NewChapter("ch-1", "Chapter 1")
		err := downloader.DownloadChapter(context.Background(), chapter, root)

		var transportErr *utils.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %v", err)
		}

		dir := filepath.Join(root, "Chapter 1")
		if _, err := os.Stat(filepath.Join(dir, "1.png")); err != nil {
			t.Error("page before the failure should exist")
		}
		for _, name := range []string{"2.png", "3.png"} {
			if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
				t.Errorf("%s should not exist", name)
			}
		}
		if _, err := os.Stat(filepath.Join(dir, data.DownloadInfoFile)); err != nil {
			t.Error("download info should be written before any page")
		}
	})

	t.Run("order mismatch", func(t *testing.T) {
		session := pageSession(t, urls, []int{0, 1})
		downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{})
		defer downloader.Close()

		err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), t.TempDir())
		var shapeErr *utils.DataShapeError
		if !errors.As(err, &shapeErr) {
			t.Fatalf("expected DataShapeError, got %v", err)
		}
	})

	t.Run("undecodable page", func(t *testing.T) {
		session := pageSession(t, urls[:1], nil)
		session.fetchBytesFunc = func(url string) ([]byte, error) {
			return []byte("<html>not an image</html>"), nil
		}
		downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{})
		defer downloader.Close()

		err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), t.TempDir())
		var decodeErr *utils.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError, got %v", err)
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, "Chapter 1"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		source := &mockSource{}
		downloader := NewDownloader(source, nil, nil, Options{})
		defer downloader.Close()

		err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), root)
		var fsErr *utils.FilesystemError
		if !errors.As(err, &fsErr) {
			t.Fatalf("expected FilesystemError, got %v", err)
		}
		if source.newSessionCount != 0 {
			t.Error("no request should be made when the target is not a directory")
		}
	})

	t.Run("zero pages", func(t *testing.T) {
		session := pageSession(t, nil, nil)
		downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{})
		defer downloader.Close()

		root := t.TempDir()
		if err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), root); err != nil {
			t.Fatalf("DownloadChapter() error = %v", err)
		}
		info, err := data.ReadDownloadInfo(filepath.Join(root, "Chapter 1"))
		if err != nil {
			t.Fatalf("ReadDownloadInfo() error = %v", err)
		}
		if info.Pages != 0 {
			t.Errorf("pages = %d, want 0", info.Pages)
		}
	})

	t.Run("repository failure is not fatal", func(t *testing.T) {
		session := pageSession(t, urls[:1], nil)
		repo := &mockRepository{
			updateChapterStatusFunc: func(string, bool, string) error {
				return errors.New("database locked")
			},
		}
		downloader := NewDownloader(&mockSource{session: session}, repo, nil, Options{})
		defer downloader.Close()

		err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), t.TempDir())
		if err != nil {
			t.Errorf("DownloadChapter() error = %v, want nil", err)
		}
	})
}

func TestDownloader_DownloadChapterDefaultRoot(t *testing.T) {
	t.Chdir(t.TempDir())

	session := pageSession(t, []string{"https://img/1"}, nil)
	var recordedPath string
	repo := &mockRepository{
		updateChapterStatusFunc: func(chapterID string, downloaded bool, filePath string) error {
			recordedPath = filePath
			return nil
		},
	}
	downloader := NewDownloader(&mockSource{session: session}, repo, nil, Options{})
	defer downloader.Close()

	comic := data.Comic{ID: "c", Name: "A/B Comic"}
	if err := downloader.DownloadChapter(context.Background(), comic.NewChapter("ch", "Vol: 1"), ""); err != nil {
		t.Fatalf("DownloadChapter() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join("A-B Comic", "Vol- 1", "1.png")); err != nil {
		t.Errorf("expected page under the comic name: %v", err)
	}

	// The library must find the chapter from any working directory
	if !filepath.IsAbs(recordedPath) {
		t.Errorf("recorded path = %s, want an absolute path", recordedPath)
	}
	if !strings.HasSuffix(recordedPath, filepath.Join("A-B Comic", "Vol- 1")) {
		t.Errorf("recorded path = %s, want the chapter directory", recordedPath)
	}
	if _, err := data.ReadDownloadInfo(recordedPath); err != nil {
		t.Errorf("download info not readable from the recorded path: %v", err)
	}
}

func TestDownloader_ConcurrencyCeiling(t *testing.T) {
	const ceiling = 3
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	pngData := createTestPNG(t)
	session := &mockSession{
		getChapterDetailFunc: func(comicID, chapterID string) (*sources.ChapterDetail, error) {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			current--
			mu.Unlock()
			return &sources.ChapterDetail{Pages: []string{"https://img/" + chapterID}}, nil
		},
		fetchBytesFunc: func(url string) ([]byte, error) {
			return pngData, nil
		},
	}

	downloader := NewDownloader(&mockSource{session: session}, nil, limiter.New(ceiling), Options{})
	defer downloader.Close()

	root := t.TempDir()
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chapter := testComic.NewChapter(fmt.Sprintf("ch-%d", i), fmt.Sprintf("Chapter %d", i))
			errs <- downloader.DownloadChapter(context.Background(), chapter, root)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("DownloadChapter() error = %v", err)
		}
	}
	if peak > ceiling {
		t.Errorf("peak concurrency = %d, want <= %d", peak, ceiling)
	}
	if peak == 0 {
		t.Error("no chapter was downloaded")
	}
}

func TestDownloader_ProgressUpdates(t *testing.T) {
	session := pageSession(t, []string{"https://img/1", "https://img/2"}, nil)
	downloader := NewDownloader(&mockSource{session: session}, nil, nil, Options{})

	if err := downloader.DownloadChapter(context.Background(), testComic.NewChapter("ch-1", "Chapter 1"), t.TempDir()); err != nil {
		t.Fatalf("DownloadChapter() error = %v", err)
	}
	downloader.Close()

	var last DownloadProgress
	count := 0
	for p := range downloader.GetProgressChannel() {
		last = p
		count++
	}
	if count != 4 {
		t.Errorf("progress updates = %d, want 4", count)
	}
	if last.Status != "complete" || last.CurrentPage != 2 || last.TotalPages != 2 {
		t.Errorf("last progress = %+v", last)
	}
}
