package db

import "time"

type Bookmark struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Tags    string    `json:"tags,omitempty"`
	Summary string    `json:"summary,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

type MediaAsset struct {
	ID         int64  `json:"id"`
	BookmarkID string `json:"bookmark_id"`
	URL        string `json:"url"`
}

type CandidateLink struct {
	ID          int64  `json:"id"`
	BookmarkID  string `json:"bookmark_id"`
	URL         string `json:"url"`
	ResolvedURL string `json:"resolved_url"`
	IsArticle   bool   `json:"is_article"`
}

type Article struct {
	ID          int64     `json:"id"`
	BookmarkID  string    `json:"bookmark_id"`
	URL         string    `json:"url"` // empty for synthetic/pasted articles
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	SiteName    string    `json:"site_name,omitempty"`
	ContentHTML string    `json:"content_html,omitempty"`
	ContentMD   string    `json:"content_md"`
	PDFPath     string    `json:"pdf_path,omitempty"`
	Synthetic   bool      `json:"synthetic,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

type Transcript struct {
	ID         int64     `json:"id"`
	BookmarkID string    `json:"bookmark_id"`
	VideoURL   string    `json:"video_url"`
	Transcript string    `json:"transcript"`
	CreatedAt  time.Time `json:"created_at"`
}

/// EnrichedBookmark is the read shape served to the dashboard: a bookmark
// with all of its child rows attached.
type EnrichedBookmark struct {
	Bookmark
	Media       []string     `json:"media"`
	Articles    []Article    `json:"articles"`
	Transcripts []Transcript `json:"transcripts"`
}
