package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/ingest"
)

func newTestServer(t *testing.T) (*Server, *ingest.Service) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "stashd-server-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	cfg := &config.Config{
		DataDir:  tmpDir,
		Platform: "x",
		Article:  config.ArticleConfig{TimeoutSeconds: 5, MinContentChars: 100, UserAgent: "stashd-test"},
		Media:    config.MediaConfig{Retries: 1, RetryDelayMS: 10, TimeoutSeconds: 5},
	}

	store, err := db.NewStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := ingest.NewService(cfg, store)
	return New(cfg, store, svc), svc
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIngestEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)

	resp, err := srv.App().Test(jsonReq("POST", "/api/bookmarks", `{"id":"t1","author":"alice","text":"hello world"}`))
	if err != nil {
		t.Fatalf("Test request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	svc.Wait("t1")

	resp, _ = srv.App().Test(httptest.NewRequest("GET", "/api/bookmarks/t1", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var eb db.EnrichedBookmark
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if eb.Author != "alice" || eb.Text != "hello world" {
		t.Errorf("Unexpected bookmark: %+v", eb)
	}
}

func TestIngestEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := srv.App().Test(jsonReq("POST", "/api/bookmarks", `{"text":"missing id"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing id, got %d", resp.StatusCode)
	}

	resp, _ = srv.App().Test(jsonReq("POST", "/api/bookmarks", `not json`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestGetUnknownBookmark(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := srv.App().Test(httptest.NewRequest("GET", "/api/bookmarks/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestListAndSearch(t *testing.T) {
	srv, svc := newTestServer(t)

	for _, body := range []string{
		`{"id":"t1","text":"a post about golang"}`,
		`{"id":"t2","text":"unrelated"}`,
	} {
		srv.App().Test(jsonReq("POST", "/api/bookmarks", body))
	}
	svc.Wait("t1")
	svc.Wait("t2")

	resp, _ := srv.App().Test(httptest.NewRequest("GET", "/api/bookmarks", nil))
	var all []db.EnrichedBookmark
	json.NewDecoder(resp.Body).Decode(&all)
	if len(all) != 2 {
		t.Fatalf("Expected 2 bookmarks, got %d", len(all))
	}

	resp, _ = srv.App().Test(httptest.NewRequest("GET", "/api/bookmarks?q=golang", nil))
	var hits []db.EnrichedBookmark
	json.NewDecoder(resp.Body).Decode(&hits)
	if len(hits) != 1 || hits[0].ID != "t1" {
		t.Errorf("Expected search hit t1, got %+v", hits)
	}
}

func TestAttachPastedArticleEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)

	srv.App().Test(jsonReq("POST", "/api/bookmarks", `{"id":"t1","text":"post"}`))
	svc.Wait("t1")

	resp, _ := srv.App().Test(jsonReq("POST", "/api/bookmarks/t1/articles", `{"title":"Notes","text":"pasted body"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var art db.Article
	json.NewDecoder(resp.Body).Decode(&art)
	if art.Title != "Notes" || art.ContentMD != "pasted body" {
		t.Errorf("Unexpected article: %+v", art)
	}

	resp, _ = srv.App().Test(jsonReq("POST", "/api/bookmarks/t1/articles", `{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty attach body, got %d", resp.StatusCode)
	}
}

func TestTranscribeEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := srv.App().Test(jsonReq("POST", "/api/bookmarks/t1/transcribe", `{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing videoUrl, got %d", resp.StatusCode)
	}
}

func TestDeleteEndpoints(t *testing.T) {
	srv, svc := newTestServer(t)

	srv.App().Test(jsonReq("POST", "/api/bookmarks", `{"id":"t1","text":"post"}`))
	svc.Wait("t1")

	resp, _ := srv.App().Test(httptest.NewRequest("DELETE", "/api/bookmarks/t1", nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	resp, _ = srv.App().Test(httptest.NewRequest("GET", "/api/bookmarks/t1", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)

	srv.App().Test(jsonReq("POST", "/api/bookmarks", `{"id":"t1","text":"post"}`))
	svc.Wait("t1")

	resp, _ := srv.App().Test(httptest.NewRequest("GET", "/api/export", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Expected zip content type, got %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if len(data) == 0 {
		t.Error("Expected non-empty zip body")
	}
}
