package db

// ListEnriched returns bookmarks most-recent first with all child rows
// attached. Each child table is loaded once and grouped by bookmark id, so
// the cost is four queries regardless of how many bookmarks match.
func (s *Store) ListEnriched(limit int) ([]EnrichedBookmark, error) {
	query := `SELECT id, url, author, text, tags, summary, saved_at FROM bookmarks ORDER BY saved_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
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

// GetEnriched returns a single bookmark with children attached.
func (s *Store) GetEnriched(id string) (*EnrichedBookmark, error) {
	b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	enriched, err := s.attachChildren([]Bookmark{*b})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

func (s *Store) attachChildren(bookmarks []Bookmark) ([]EnrichedBookmark, error) {
	media, err := s.mediaByBookmark()
	if err != nil {
		return nil, err
	}
	articles, err := s.articlesByBookmark()
	if err != nil {
		return nil, err
	}
	transcripts, err := s.transcriptsByBookmark()
	if err != nil {
		return nil, err
	}

	result := make([]EnrichedBookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		eb := EnrichedBookmark{
			Bookmark:    b,
			Media:       media[b.ID],
			Articles:    articles[b.ID],
			Transcripts: transcripts[b.ID],
		}
		if eb.Media == nil {
			eb.Media = []string{}
		}
		if eb.Articles == nil {
			eb.Articles = []Article{}
		}
		if eb.Transcripts == nil {
			eb.Transcripts = []Transcript{}
		}
		result = append(result, eb)
	}
	return result, nil
}

func (s *Store) mediaByBookmark() (map[string][]string, error) {
	rows, err := s.db.Query(`SELECT bookmark_id, url FROM media ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var bookmarkID, url string
		if err := rows.Scan(&bookmarkID, &url); err != nil {
			return nil, err
		}
		result[bookmarkID] = append(result[bookmarkID], url)
	}
	return result, rows.Err()
}

func (s *Store) articlesByBookmark() (map[string][]Article, error) {
	rows, err := s.db.Query(`SELECT id, bookmark_id, url, title, author, excerpt, site_name, content_html, content_md, pdf_path, synthetic, extracted_at FROM articles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Article)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result[a.BookmarkID] = append(result[a.BookmarkID], *a)
	}
	return result, rows.Err()
}

func (s *Store) transcriptsByBookmark() (map[string][]Transcript, error) {
	rows, err := s.db.Query(`SELECT id, bookmark_id, video_url, transcript, created_at FROM transcripts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Transcript)
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.ID, &t.BookmarkID, &t.VideoURL, &t.Transcript, &t.CreatedAt); err != nil {
			return nil, err
		}
		result[t.BookmarkID] = append(result[t.BookmarkID], t)
	}
	return result, rows.Err()
}

// Links returns the candidate links recorded for a bookmark in insertion order.
func (s *Store) Links(bookmarkID string) ([]CandidateLink, error) {
	rows, err := s.db.Query(`SELECT id, bookmark_id, url, resolved_url, is_article FROM links WHERE bookmark_id = ? ORDER BY id`, bookmarkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []CandidateLink
	for rows.Next() {
		var l CandidateLink
		var isArticle int
		if err := rows.Scan(&l.ID, &l.BookmarkID, &l.URL, &l.ResolvedURL, &isArticle); err != nil {
			return nil, err
		}
		l.IsArticle = isArticle != 0
		links = append(links, l)
	}
	return links, rows.Err()
}
