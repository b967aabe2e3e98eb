package article

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
)

// Pipeline composes resolve -> classify -> extract for a bookmark's links.
type Pipeline struct {
	resolver  *Resolver
	extractor *Extractor
}

func NewPipeline(cfg *config.Config) *Pipeline {
	return &Pipeline{
		resolver:  NewResolver(cfg.ArticleTimeout()),
		extractor: NewExtractor(cfg.ArticleTimeout(), cfg.Article.UserAgent, cfg.Article.MinContentChars),
	}
}

// ProcessLinks runs each URL through the pipeline sequentially. Every URL is
// recorded as a candidate link regardless of outcome; IsArticle is true only
// when extraction actually succeeded. A failure on one link is logged and the
// rest of the batch continues.
func (p *Pipeline) ProcessLinks(urls []string) ([]db.CandidateLink, []db.Article) {
	var links []db.CandidateLink
	var articles []db.Article

	for _, rawURL := range urls {
		resolved := p.resolver.Resolve(rawURL)
		link := db.CandidateLink{URL: rawURL, ResolvedURL: resolved}

		if IsArticle(resolved) {
			art, err := p.extractor.Extract(resolved)
			if err != nil {
				logrus.WithField("url", resolved).Warnf("article extraction failed: %v", err)
			}
			if art != nil {
				link.IsArticle = true
				articles = append(articles, *art)
			}
		}

		links = append(links, link)
	}

	return links, articles
}

// ExtractOne resolves and extracts a single URL for manual attachment.
// Unlike the batch path, a negative result is reported as an error so the
// caller can tell the user why nothing was attached.
func (p *Pipeline) ExtractOne(rawURL string) (*db.Article, error) {
	resolved := p.resolver.Resolve(rawURL)
	art, err := p.extractor.Extract(resolved)
	if err != nil {
		return nil, err
	}
	if art == nil {
		return nil, fmt.Errorf("no readable article content at %s", resolved)
	}
	return art, nil
}
