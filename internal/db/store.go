package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "stashd.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		url TEXT,
		author TEXT,
		text TEXT,
		tags TEXT,
		summary TEXT DEFAULT '',
		saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bookmark_id TEXT NOT NULL,
		url TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_media_bookmark ON media(bookmark_id);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bookmark_id TEXT NOT NULL,
		url TEXT NOT NULL,
		resolved_url TEXT,
		is_article INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_links_bookmark ON links(bookmark_id);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bookmark_id TEXT NOT NULL,
		url TEXT DEFAULT '',
		title TEXT,
		author TEXT,
		excerpt TEXT,
		site_name TEXT,
		content_html TEXT,
		content_md TEXT NOT NULL,
		pdf_path TEXT DEFAULT '',
		synthetic INTEGER DEFAULT 0,
		extracted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_articles_bookmark ON articles(bookmark_id);

	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bookmark_id TEXT NOT NULL,
		video_url TEXT NOT NULL,
		transcript TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(bookmark_id, video_url)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts a bookmark or merges it into the existing row. The URL is
// updated unconditionally; author, text and tags only when the incoming value
// is non-empty, so a partial re-scrape never blanks enriched fields.
func (s *Store) Upsert(b *Bookmark) error {
	if b.SavedAt.IsZero() {
		b.SavedAt = time.Now()
	}

	query := `
	INSERT INTO bookmarks (id, url, author, text, tags, saved_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		author = CASE WHEN excluded.author != '' THEN excluded.author ELSE bookmarks.author END,
		text = CASE WHEN excluded.text != '' THEN excluded.text ELSE bookmarks.text END,
		tags = CASE WHEN excluded.tags != '' THEN excluded.tags ELSE bookmarks.tags END
	`

	_, err := s.db.Exec(query, b.ID, b.URL, b.Author, b.Text, b.Tags, b.SavedAt)
	return err
}

func (s *Store) Get(id string) (*Bookmark, error) {
	query := `SELECT id, url, author, text, tags, summary, saved_at FROM bookmarks WHERE id = ?`

	var b Bookmark
	err := s.db.QueryRow(query, id).Scan(&b.ID, &b.URL, &b.Author, &b.Text, &b.Tags, &b.Summary, &b.SavedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) SetSummary(id, summary string) error {
	_, err := s.db.Exec(`UPDATE bookmarks SET summary = ? WHERE id = ?`, summary, id)
	return err
}

// HasMedia reports whether any media rows exist for the bookmark. Used for
// enrichment gating: the media fan-out is skipped when it returns true.
func (s *Store) HasMedia(id string) (bool, error) {
	return s.hasChild(`SELECT COUNT(*) FROM media WHERE bookmark_id = ?`, id)
}

// HasArticles reports whether any article rows exist for the bookmark.
func (s *Store) HasArticles(id string) (bool, error) {
	return s.hasChild(`SELECT COUNT(*) FROM articles WHERE bookmark_id = ?`, id)
}

// HasLinks reports whether link processing has ever run for the bookmark.
// Every submitted URL is recorded as a link row regardless of outcome, so a
// zero count means the article fan-out never ran.
func (s *Store) HasLinks(id string) (bool, error) {
	return s.hasChild(`SELECT COUNT(*) FROM links WHERE bookmark_id = ?`, id)
}

// HasExtractedArticles reports whether any article extracted from an external
// URL exists (synthetic and pasted articles have url = '').
func (s *Store) HasExtractedArticles(id string) (bool, error) {
	return s.hasChild(`SELECT COUNT(*) FROM articles WHERE bookmark_id = ? AND url != ''`, id)
}

func (s *Store) hasChild(query, id string) (bool, error) {
	var n int
	if err := s.db.QueryRow(query, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) AddMedia(bookmarkID, url string) error {
	_, err := s.db.Exec(`INSERT INTO media (bookmark_id, url) VALUES (?, ?)`, bookmarkID, url)
	return err
}

func (s *Store) ClearMedia(bookmarkID string) error {
	_, err := s.db.Exec(`DELETE FROM media WHERE bookmark_id = ?`, bookmarkID)
	return err
}

// ReplaceLinksArticles atomically swaps the link and extracted-article sets
// for a bookmark. When the new set contains extracted articles, any synthetic
// article is removed too: the bookmark owns either per-link articles or one
// synthetic, never both. Manually attached articles (paste, PDF) are
// preserved. Insertion order matches slice order.
func (s *Store) ReplaceLinksArticles(bookmarkID string, links []CandidateLink, articles []Article) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links WHERE bookmark_id = ?`, bookmarkID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM articles WHERE bookmark_id = ? AND url != ''`, bookmarkID); err != nil {
		return err
	}
	if len(articles) > 0 {
		if _, err := tx.Exec(`DELETE FROM articles WHERE bookmark_id = ? AND synthetic = 1`, bookmarkID); err != nil {
			return err
		}
	}

	for _, l := range links {
		isArticle := 0
		if l.IsArticle {
			isArticle = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO links (bookmark_id, url, resolved_url, is_article) VALUES (?, ?, ?, ?)`,
			bookmarkID, l.URL, l.ResolvedURL, isArticle,
		); err != nil {
			return err
		}
	}

	for _, a := range articles {
		if err := insertArticle(tx, bookmarkID, a); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertArticle(e execer, bookmarkID string, a Article) error {
	if a.ExtractedAt.IsZero() {
		a.ExtractedAt = time.Now()
	}
	synthetic := 0
	if a.Synthetic {
		synthetic = 1
	}
	_, err := e.Exec(
		`INSERT INTO articles (bookmark_id, url, title, author, excerpt, site_name, content_html, content_md, pdf_path, synthetic, extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bookmarkID, a.URL, a.Title, a.Author, a.Excerpt, a.SiteName, a.ContentHTML, a.ContentMD, a.PDFPath, synthetic, a.ExtractedAt,
	)
	return err
}

// AddArticle stores a manually attached article (by URL, paste, or PDF).
func (s *Store) AddArticle(bookmarkID string, a Article) error {
	return insertArticle(s.db, bookmarkID, a)
}

// SyntheticArticle returns the article manufactured from the bookmark's own
// text, or ErrNotFound.
func (s *Store) SyntheticArticle(bookmarkID string) (*Article, error) {
	query := `SELECT id, bookmark_id, url, title, author, excerpt, site_name, content_html, content_md, pdf_path, synthetic, extracted_at
		FROM articles WHERE bookmark_id = ? AND synthetic = 1 ORDER BY id LIMIT 1`

	a, err := scanArticle(s.db.QueryRow(query, bookmarkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var synthetic int
	err := row.Scan(
		&a.ID, &a.BookmarkID, &a.URL, &a.Title, &a.Author, &a.Excerpt, &a.SiteName,
		&a.ContentHTML, &a.ContentMD, &a.PDFPath, &synthetic, &a.ExtractedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Synthetic = synthetic != 0
	return &a, nil
}

// SaveSyntheticArticle writes the bookmark's-own-text article. It overwrites
// an existing synthetic article only when force is set or the new content is
// strictly longer, so a richer capture is never replaced by a shorter one.
func (s *Store) SaveSyntheticArticle(bookmarkID string, a Article, force bool) error {
	existing, err := s.SyntheticArticle(bookmarkID)
	if err != nil && err != ErrNotFound {
		return err
	}

	if existing != nil {
		if !force && len(a.ContentMD) <= len(existing.ContentMD) {
			return nil
		}
		if _, err := s.db.Exec(`DELETE FROM articles WHERE id = ?`, existing.ID); err != nil {
			return err
		}
	}

	a.URL = ""
	a.PDFPath = ""
	a.Synthetic = true
	return insertArticle(s.db, bookmarkID, a)
}

// Delete removes a bookmark and all of its children in one transaction.
func (s *Store) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM media WHERE bookmark_id = ?`,
		`DELETE FROM links WHERE bookmark_id = ?`,
		`DELETE FROM articles WHERE bookmark_id = ?`,
		`DELETE FROM transcripts WHERE bookmark_id = ?`,
		`DELETE FROM bookmarks WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteAll empties every table in one transaction.
func (s *Store) DeleteAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM media`,
		`DELETE FROM links`,
		`DELETE FROM articles`,
		`DELETE FROM transcripts`,
		`DELETE FROM bookmarks`,
	} {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks`).Scan(&count)
	return count, err
}

func (s *Store) Transcript(bookmarkID, videoURL string) (*Transcript, error) {
	query := `SELECT id, bookmark_id, video_url, transcript, created_at FROM transcripts
		WHERE bookmark_id = ? AND video_url = ?`

	var t Transcript
	err := s.db.QueryRow(query, bookmarkID, videoURL).Scan(&t.ID, &t.BookmarkID, &t.VideoURL, &t.Transcript, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTranscript upserts on the (bookmark, video URL) pair: re-transcribing
// the same video updates rather than duplicates.
func (s *Store) SaveTranscript(bookmarkID, videoURL, transcript string) error {
	_, err := s.db.Exec(`
		INSERT INTO transcripts (bookmark_id, video_url, transcript, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bookmark_id, video_url) DO UPDATE SET
			transcript = excluded.transcript,
			created_at = excluded.created_at
	`, bookmarkID, videoURL, transcript, time.Now())
	return err
}
