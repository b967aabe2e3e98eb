package article

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<html><head><title>Real Article</title></head><body>
	<nav><a href="/">Home</a><a href="/about">About</a></nav>
	<article>
		<h1>Real Article</h1>
		<p>This is a test article with enough content to be considered the main article.
		It needs to be reasonably long so that readability considers it significant content.
		Here is another paragraph to add more text. And another sentence for good measure.
		The readability algorithm needs substantial text to work properly.</p>
		<p>Second paragraph with more content. This helps readability determine that this
		is indeed the main article content of the page. More text here for thoroughness.
		And even more text to ensure this passes the readability threshold easily.</p>
	</article>
	<footer>Copyright 2024</footer>
</body></html>`

func newExtractor() *Extractor {
	return NewExtractor(10*time.Second, "stashd-test", 100)
}

func TestExtract_Article(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	art, err := newExtractor().Extract(srv.URL + "/post")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if art == nil {
		t.Fatal("Expected article, got nil")
	}
	if art.Title != "Real Article" {
		t.Errorf("title = %q, want %q", art.Title, "Real Article")
	}
	if art.ContentMD == "" {
		t.Error("Expected non-empty markdown content")
	}
	if !strings.Contains(art.ContentMD, "test article with enough content") {
		t.Errorf("Markdown missing article text: %q", art.ContentMD)
	}
	if art.ContentHTML == "" {
		t.Error("Expected HTML form preserved alongside markdown")
	}
}

func TestExtract_NonHTMLReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"not": "html"}`)
	}))
	defer srv.Close()

	art, err := newExtractor().Extract(srv.URL)
	if err != nil {
		t.Fatalf("Expected nil error for non-HTML, got %v", err)
	}
	if art != nil {
		t.Errorf("Expected nil article for non-HTML content type, got %+v", art)
	}
}

func TestExtract_TooShortReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><article><p>too short</p></article></body></html>`)
	}))
	defer srv.Close()

	art, err := newExtractor().Extract(srv.URL)
	if err != nil {
		t.Fatalf("Expected nil error for short content, got %v", err)
	}
	if art != nil {
		t.Errorf("Expected nil article below minimum length, got %+v", art)
	}
}

func TestExtract_HTTPErrorReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	art, err := newExtractor().Extract(srv.URL)
	if err == nil {
		t.Error("Expected error for HTTP 403")
	}
	if art != nil {
		t.Errorf("Expected nil article on error, got %+v", art)
	}
}

func TestResolver(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/real-article", http.StatusMovedPermanently)
	}))
	defer shortener.Close()

	r := NewResolver(5 * time.Second)

	got := r.Resolve(shortener.URL + "/abc")
	want := target.URL + "/real-article"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	// Unreachable host: original URL comes back unchanged.
	dead := "http://127.0.0.1:1/nope"
	if got := r.Resolve(dead); got != dead {
		t.Errorf("Resolve(dead) = %q, want original", got)
	}
}

func TestResolver_HeadRejectedFallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(5 * time.Second)
	got := r.Resolve(srv.URL + "/x")
	if !sawGet {
		t.Error("Expected GET fallback after HEAD rejection")
	}
	if got != srv.URL+"/x" {
		t.Errorf("Resolve = %q, want %q", got, srv.URL+"/x")
	}
}

func TestProcessLinks(t *testing.T) {
	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	}))
	defer articleSrv.Close()

	brokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer brokenSrv.Close()

	p := &Pipeline{
		resolver:  NewResolver(5 * time.Second),
		extractor: newExtractor(),
	}

	urls := []string{
		articleSrv.URL + "/real",
		articleSrv.URL + "/photo.jpg", // classifier rejects by extension
		brokenSrv.URL + "/gone",
	}
	links, articles := p.ProcessLinks(urls)

	if len(links) != 3 {
		t.Fatalf("Expected every URL recorded as a link, got %d", len(links))
	}
	if !links[0].IsArticle {
		t.Error("Expected first link flagged as article")
	}
	if links[1].IsArticle || links[2].IsArticle {
		t.Error("Expected media and broken links not flagged as articles")
	}
	if links[0].URL != urls[0] || links[2].URL != urls[2] {
		t.Error("Expected link order to match submission order")
	}
	if len(articles) != 1 {
		t.Fatalf("Expected 1 extracted article, got %d", len(articles))
	}
	if articles[0].ContentMD == "" {
		t.Error("Expected markdown content in extracted article")
	}
}
