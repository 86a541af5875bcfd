package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS comics (
	id     VARCHAR PRIMARY KEY,
	name   VARCHAR NOT NULL,
	status VARCHAR NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS chapters (
	id         VARCHAR PRIMARY KEY,
	comic_id   VARCHAR NOT NULL,
	name       VARCHAR NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	downloaded BOOLEAN NOT NULL DEFAULT false,
	file_path  VARCHAR NOT NULL DEFAULT ''
);
`

// InitDuckDB opens the database at path, creating parent directories and
// the schema when missing.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

type Repository struct {
	db *sql.DB
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveComic(comic *LibraryComic) error {
	_, err := r.db.Exec(`
		INSERT INTO comics (id, name, status) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, status = excluded.status`,
		comic.ID, comic.Name, comic.Status)
	return err
}

// GetComic returns nil without error when the comic is unknown.
func (r *Repository) GetComic(id string) (*LibraryComic, error) {
	comic := &LibraryComic{}
	err := r.db.QueryRow(`SELECT id, name, status FROM comics WHERE id = ?`, id).
		Scan(&comic.ID, &comic.Name, &comic.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comic, nil
}

func (r *Repository) ListComics() ([]*LibraryComic, error) {
	rows, err := r.db.Query(`SELECT id, name, status FROM comics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comics []*LibraryComic
	for rows.Next() {
		comic := &LibraryComic{}
		if err := rows.Scan(&comic.ID, &comic.Name, &comic.Status); err != nil {
			return nil, err
		}
		comics = append(comics, comic)
	}
	return comics, rows.Err()
}

func (r *Repository) DeleteComic(id string) error {
	if _, err := r.db.Exec(`DELETE FROM chapters WHERE comic_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.Exec(`DELETE FROM comics WHERE id = ?`, id)
	return err
}

// SaveChapter inserts a chapter or refreshes its listing data. The download
// state of an existing chapter is only changed by UpdateChapterStatus.
func (r *Repository) SaveChapter(chapter *LibraryChapter) error {
	_, err := r.db.Exec(`
		INSERT INTO chapters (id, comic_id, name, position, downloaded, file_path) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			comic_id = excluded.comic_id,
			name = excluded.name,
			position = excluded.position`,
		chapter.ID, chapter.ComicID, chapter.Name, chapter.Position, chapter.Downloaded, chapter.FilePath)
	return err
}

// GetChapters returns the chapters of a comic in listing order.
func (r *Repository) GetChapters(comicID string) ([]*LibraryChapter, error) {
	rows, err := r.db.Query(`
		SELECT id, comic_id, name, position, downloaded, file_path
		FROM chapters WHERE comic_id = ? ORDER BY position`, comicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*LibraryChapter
	for rows.Next() {
		ch := &LibraryChapter{}
		if err := rows.Scan(&ch.ID, &ch.ComicID, &ch.Name, &ch.Position, &ch.Downloaded, &ch.FilePath); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (r *Repository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error {
	res, err := r.db.Exec(`UPDATE chapters SET downloaded = ?, file_path = ? WHERE id = ?`,
		downloaded, filePath, chapterID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	return nil
}

// GetComicWithChapterCount returns the comic together with its total and
// downloaded chapter counts.
func (r *Repository) GetComicWithChapterCount(id string) (*LibraryComic, int, int, error) {
	comic, err := r.GetComic(id)
	if err != nil || comic == nil {
		return comic, 0, 0, err
	}

	var total, downloaded int
	err = r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN downloaded THEN 1 ELSE 0 END), 0)
		FROM chapters WHERE comic_id = ?`, id).Scan(&total, &downloaded)
	if err != nil {
		return nil, 0, 0, err
	}
	return comic, total, downloaded, nil
}
