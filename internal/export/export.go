// Package export renders the archive as a zip of Markdown documents, one
// per bookmark plus an index, suitable for dropping into a notes vault.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/media"
)

// Archive writes every bookmark as <id>.md plus an index.md and returns
// the zip bytes.
func Archive(store *db.Store) ([]byte, error) {
	bookmarks, err := store.ListEnriched(0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var index strings.Builder
	index.WriteString("# Stashd export\n\n")

	for _, eb := range bookmarks {
		name := media.SanitizeID(eb.ID) + ".md"
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(renderBookmark(&eb))); err != nil {
			return nil, err
		}
		fmt.Fprintf(&index, "- [%s](%s) %s\n", eb.ID, name, firstLine(eb.Text))
	}

	w, err := zw.Create("index.md")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(index.String())); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderBookmark(eb *db.EnrichedBookmark) string {
	var b strings.Builder

	title := firstLine(eb.Text)
	if title == "" {
		title = eb.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if eb.Author != "" {
		fmt.Fprintf(&b, "- Author: %s\n", eb.Author)
	}
	if eb.URL != "" {
		fmt.Fprintf(&b, "- Source: %s\n", eb.URL)
	}
	if eb.Tags != "" {
		fmt.Fprintf(&b, "- Tags: %s\n", eb.Tags)
	}
	fmt.Fprintf(&b, "- Saved: %s\n\n", eb.SavedAt.Format("2006-01-02 15:04"))

	if eb.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", eb.Summary)
	}

	if eb.Text != "" {
		fmt.Fprintf(&b, "## Post\n\n%s\n\n", eb.Text)
	}

	for _, m := range eb.Media {
		fmt.Fprintf(&b, "![](%s)\n", m)
	}
	if len(eb.Media) > 0 {
		b.WriteString("\n")
	}

	for _, art := range eb.Articles {
		heading := art.Title
		if heading == "" {
			heading = "Article"
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		if art.URL != "" {
			fmt.Fprintf(&b, "Source: %s\n\n", art.URL)
		}
		b.WriteString(art.ContentMD)
		b.WriteString("\n\n")
	}

	for _, tr := range eb.Transcripts {
		fmt.Fprintf(&b, "## Transcript (%s)\n\n%s\n\n", tr.VideoURL, tr.Transcript)
	}

	return b.String()
}

func firstLine(s string) string {
	line := strings.TrimSpace(s)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if len(line) > 80 {
		line = line[:80]
	}
	return line
}
