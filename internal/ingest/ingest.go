package ingest

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/user/stashd/internal/article"
	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/media"
	"github.com/user/stashd/internal/pdftext"
	"github.com/user/stashd/internal/summarize"
	"github.com/user/stashd/internal/transcribe"
)

// Payload is what the userscript submits for one bookmark. Optional fields
// default to their zero values; only the external id is required.
type Payload struct {
	ID           string   `json:"id" validate:"required"`
	URL          string   `json:"url"`
	Author       string   `json:"author"`
	Text         string   `json:"text"`
	ThreadText   string   `json:"threadText"`
	Tags         []string `json:"tags"`
	Media        []string `json:"media"`
	Links        []string `json:"links"`
	ForceExtract bool     `json:"forceExtract"`
	ForceMedia   bool     `json:"forceMedia"`
}

// Service orchestrates ingestion: the synchronous store write, gating, and
// the asynchronous enrichment fan-outs.
type Service struct {
	cfg        *config.Config
	store      *db.Store
	downloader *media.Downloader
	pipeline   *article.Pipeline
	summarizer *summarize.Summarizer

	// newEngine is called per transcription request so a missing provider
	// credential fails that request, not service startup.
	newEngine func() (*transcribe.Engine, error)

	mu   sync.Mutex
	jobs map[string]*jobGroup
}

// jobGroup tracks in-flight enrichment for one bookmark. The active count
// lets the map entry be pruned once the bookmark is quiescent.
type jobGroup struct {
	wg     sync.WaitGroup
	active int
}

func NewService(cfg *config.Config, store *db.Store) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		downloader: media.NewDownloader(cfg.MediaDir(), cfg.Media.Retries, cfg.MediaRetryDelay(), cfg.MediaTimeout()),
		pipeline:   article.NewPipeline(cfg),
		summarizer: summarize.NewSummarizer(cfg),
		newEngine:  func() (*transcribe.Engine, error) { return transcribe.NewEngineFromEnv(cfg) },
		jobs:       make(map[string]*jobGroup),
	}
}

// SetEngineFactory overrides transcription engine construction (tests).
func (s *Service) SetEngineFactory(f func() (*transcribe.Engine, error)) {
	s.newEngine = f
}

// Ingest performs the synchronous phase (upsert + gating checks) and
// dispatches enrichment in the background. It returns once the bookmark is
// stored; media and articles appear eventually.
func (s *Service) Ingest(p Payload) error {
	if p.ID == "" {
		return fmt.Errorf("bookmark id is required")
	}

	b := &db.Bookmark{
		ID:     p.ID,
		URL:    p.URL,
		Author: p.Author,
		Text:   p.Text,
		Tags:   strings.Join(p.Tags, ","),
	}
	if err := s.store.Upsert(b); err != nil {
		return fmt.Errorf("storing bookmark: %w", err)
	}

	// Gating: enrich only once per kind unless forced.
	runMedia := false
	if len(p.Media) > 0 {
		has, err := s.store.HasMedia(p.ID)
		if err != nil {
			return err
		}
		runMedia = p.ForceMedia || !has
	}

	runLinks := false
	if len(p.Links) > 0 {
		has, err := s.store.HasLinks(p.ID)
		if err != nil {
			return err
		}
		runLinks = p.ForceExtract || !has
	}

	if runMedia {
		s.spawn(p.ID, func() { s.processMedia(p) })
	}
	s.spawn(p.ID, func() { s.processArticles(p, runLinks) })

	return nil
}

// spawn runs fn in the background, tracked against the bookmark so Wait can
// block until the bookmark's enrichment is quiescent. The tracking entry is
// removed once the last task for the bookmark finishes.
func (s *Service) spawn(bookmarkID string, fn func()) {
	s.mu.Lock()
	g, ok := s.jobs[bookmarkID]
	if !ok {
		g = &jobGroup{}
		s.jobs[bookmarkID] = g
	}
	g.active++
	g.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			g.active--
			if g.active == 0 && s.jobs[bookmarkID] == g {
				delete(s.jobs, bookmarkID)
			}
			s.mu.Unlock()
			g.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until all background enrichment dispatched for the bookmark so
// far has finished. Used by tests and the status endpoint.
func (s *Service) Wait(bookmarkID string) {
	s.mu.Lock()
	g := s.jobs[bookmarkID]
	s.mu.Unlock()
	if g != nil {
		g.wg.Wait()
	}
}

// processMedia downloads each media URL, falling back to storing the remote
// URL when caching fails or the CDN blocks the fetch. Failures never
// propagate out of the fan-out.
func (s *Service) processMedia(p Payload) {
	if p.ForceMedia {
		if err := s.store.ClearMedia(p.ID); err != nil {
			logrus.WithField("bookmark", p.ID).Errorf("clearing media: %v", err)
			return
		}
	}

	for _, mediaURL := range p.Media {
		stored := mediaURL
		localPath, err := s.downloader.Download(mediaURL, p.ID)
		if err != nil {
			logrus.WithField("bookmark", p.ID).Warnf("media cache failed for %s: %v", mediaURL, err)
		} else {
			stored = localPath
		}
		if err := s.store.AddMedia(p.ID, stored); err != nil {
			logrus.WithField("bookmark", p.ID).Errorf("storing media: %v", err)
		}
	}
}

// processArticles runs the link pipeline when gating allows it, then applies
// the synthetic-article fallback so every bookmark has searchable article
// content.
func (s *Service) processArticles(p Payload, runLinks bool) {
	if runLinks {
		links, articles := s.pipeline.ProcessLinks(p.Links)
		if err := s.store.ReplaceLinksArticles(p.ID, links, articles); err != nil {
			logrus.WithField("bookmark", p.ID).Errorf("storing links and articles: %v", err)
			return
		}
	}

	hasExtracted, err := s.store.HasExtractedArticles(p.ID)
	if err != nil {
		logrus.WithField("bookmark", p.ID).Errorf("checking articles: %v", err)
		return
	}
	if hasExtracted {
		return
	}

	text := p.ThreadText
	if text == "" {
		text = p.Text
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	synthetic := db.Article{
		Title:       titleFromText(text),
		Author:      p.Author,
		SiteName:    s.cfg.Platform,
		ContentHTML: "<article><p>" + html.EscapeString(text) + "</p></article>",
		ContentMD:   text,
	}
	if err := s.store.SaveSyntheticArticle(p.ID, synthetic, p.ForceExtract); err != nil {
		logrus.WithField("bookmark", p.ID).Errorf("storing synthetic article: %v", err)
	}
}

// titleFromText takes the first line of the text, truncated.
func titleFromText(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(line)
	if len(runes) > 100 {
		line = string(runes[:100]) + "..."
	}
	return line
}

// Transcribe returns the stored transcript for (bookmark, videoURL) when one
// exists, otherwise runs the transcription pipeline and stores the result.
func (s *Service) Transcribe(ctx context.Context, bookmarkID, videoURL string) (*transcribe.Result, error) {
	if _, err := s.store.Get(bookmarkID); err != nil {
		return nil, err
	}

	if cached, err := s.store.Transcript(bookmarkID, videoURL); err == nil {
		return &transcribe.Result{
			Text:     cached.Transcript,
			VideoURL: videoURL,
			Strategy: transcribe.StrategyCached,
		}, nil
	} else if err != db.ErrNotFound {
		return nil, err
	}

	engine, err := s.newEngine()
	if err != nil {
		return nil, err
	}

	result, err := engine.Transcribe(ctx, videoURL, bookmarkID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveTranscript(bookmarkID, result.VideoURL, result.Text); err != nil {
		return nil, fmt.Errorf("storing transcript: %w", err)
	}
	return result, nil
}

// AttachArticleURL extracts the article at url and attaches it to the
// bookmark. Unlike the background fan-out this is a foreground operation, so
// failures propagate.
func (s *Service) AttachArticleURL(bookmarkID, url string) (*db.Article, error) {
	if _, err := s.store.Get(bookmarkID); err != nil {
		return nil, err
	}

	art, err := s.pipeline.ExtractOne(url)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddArticle(bookmarkID, *art); err != nil {
		return nil, err
	}
	return art, nil
}

// AttachPastedArticle stores raw pasted text or Markdown as an article,
// wrapped into a minimal HTML rendering.
func (s *Service) AttachPastedArticle(bookmarkID, title, text string) (*db.Article, error) {
	if _, err := s.store.Get(bookmarkID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("article text is required")
	}
	if title == "" {
		title = titleFromText(text)
	}

	art := db.Article{
		Title:       title,
		ContentHTML: "<article><p>" + html.EscapeString(text) + "</p></article>",
		ContentMD:   text,
	}
	if err := s.store.AddArticle(bookmarkID, art); err != nil {
		return nil, err
	}
	return &art, nil
}

// AttachPDF saves an uploaded PDF under the bookmark's articles directory,
// extracts its text, and stores both as an article.
func (s *Service) AttachPDF(bookmarkID, filename string, data []byte) (*db.Article, error) {
	if _, err := s.store.Get(bookmarkID); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.cfg.ArticlesDir(), media.SanitizeID(bookmarkID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dest := filepath.Join(dir, uuid.NewString()+".pdf")
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return nil, err
	}

	text, err := pdftext.ExtractText(dest)
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		os.Remove(dest)
		return nil, fmt.Errorf("no text extracted from %s", filename)
	}

	art := db.Article{
		Title:     strings.TrimSuffix(filename, ".pdf"),
		ContentMD: text,
		PDFPath:   dest,
	}
	if err := s.store.AddArticle(bookmarkID, art); err != nil {
		return nil, err
	}
	return &art, nil
}

// Summarize generates and stores an LLM summary over the bookmark's best
// available content: extracted articles first, then transcripts, then the raw
// post text.
func (s *Service) Summarize(ctx context.Context, bookmarkID string) (string, error) {
	eb, err := s.store.GetEnriched(bookmarkID)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, a := range eb.Articles {
		parts = append(parts, a.ContentMD)
	}
	if len(parts) == 0 {
		for _, t := range eb.Transcripts {
			parts = append(parts, t.Transcript)
		}
	}
	if len(parts) == 0 && eb.Text != "" {
		parts = append(parts, eb.Text)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("nothing to summarize for %s", bookmarkID)
	}

	summary, err := s.summarizer.Summarize(ctx, strings.Join(parts, "\n\n"))
	if err != nil {
		return "", err
	}
	if err := s.store.SetSummary(bookmarkID, summary); err != nil {
		return "", err
	}
	return summary, nil
}
