package article

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"

	"github.com/user/stashd/internal/db"
)

const maxResponseBytes = 16 * 1024 * 1024

// Extractor fetches a URL and reduces it to readable article content.
type Extractor struct {
	client          *http.Client
	userAgent       string
	minContentChars int
}

func NewExtractor(timeout time.Duration, userAgent string, minContentChars int) *Extractor {
	if minContentChars <= 0 {
		minContentChars = 100
	}
	return &Extractor{
		client:          &http.Client{Timeout: timeout},
		userAgent:       userAgent,
		minContentChars: minContentChars,
	}
}

// Extract fetches rawURL and returns the readable article, or (nil, nil) when
// the page is not an article: wrong content type, nothing readable, or
// content below the minimum length (paywall stubs, login walls). Hard
// failures (network, parse) come back as errors; callers treat both outcomes
// as a negative classification for the one link and keep going.
func (e *Extractor) Extract(rawURL string) (*db.Article, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	pageURL := resp.Request.URL
	return e.fromHTML(body, pageURL)
}

func (e *Extractor) fromHTML(htmlBytes []byte, pageURL *url.URL) (*db.Article, error) {
	art, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	if art.Content == "" {
		return nil, nil
	}

	md, err := ConvertToMarkdown(art.Content)
	if err != nil {
		return nil, fmt.Errorf("markdown conversion: %w", err)
	}
	if len(md) < e.minContentChars {
		return nil, nil
	}

	return &db.Article{
		URL:         pageURL.String(),
		Title:       art.Title,
		Author:      art.Byline,
		Excerpt:     art.Excerpt,
		SiteName:    art.SiteName,
		ContentHTML: art.Content,
		ContentMD:   md,
		ExtractedAt: time.Now(),
	}, nil
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
