package db

import "strings"

// likeEscaper neutralizes LIKE wildcards so user queries stay literal
// substring matches.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search filters bookmarks by case-insensitive substring match over bookmark
// text, author and tags, plus article title and markdown content. Matches are
// unioned, deduplicated by bookmark, and returned most-recent first with
// children attached. An empty query returns an empty result set.
func (s *Store) Search(query string, limit int) ([]EnrichedBookmark, error) {
	if query == "" {
		return []EnrichedBookmark{}, nil
	}

	// LIKE is case-insensitive for ASCII in sqlite by default.
	pattern := "%" + likeEscaper.Replace(query) + "%"

	sqlQuery := `
	SELECT DISTINCT b.id, b.url, b.author, b.text, b.tags, b.summary, b.saved_at
	FROM bookmarks b
	LEFT JOIN articles a ON a.bookmark_id = b.id
	WHERE b.text LIKE ? ESCAPE '\' OR b.author LIKE ? ESCAPE '\' OR b.tags LIKE ? ESCAPE '\'
	   OR a.title LIKE ? ESCAPE '\' OR a.content_md LIKE ? ESCAPE '\'
	ORDER BY b.saved_at DESC, b.id DESC
	`
	args := []interface{}{pattern, pattern, pattern, pattern, pattern}
	if limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.URL, &b.Author, &b.Text, &b.Tags, &b.Summary, &b.SavedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s.attachChildren(bookmarks)
}
