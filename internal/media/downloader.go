package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// ErrBlocked means the source CDN answered 403 to an unauthenticated fetch.
// There is no point retrying; the caller falls back to keeping the remote URL.
var ErrBlocked = errors.New("media fetch blocked by source")

var extByContentType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/avif":      ".avif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Downloader caches remote media files under a per-bookmark directory.
type Downloader struct {
	mediaDir string
	client   *retryablehttp.Client
}

type logrusAdapter struct{}

func (logrusAdapter) Printf(format string, v ...interface{}) {
	logrus.Debugf(format, v...)
}

func NewDownloader(mediaDir string, retries int, retryDelay, timeout time.Duration) *Downloader {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = retryDelay
	client.RetryWaitMax = retryDelay
	client.HTTPClient.Timeout = timeout
	client.Logger = logrusAdapter{}

	// Transient failures (network errors, non-2xx) are retried; a 403 is the
	// CDN actively blocking unauthenticated fetches and is surfaced
	// immediately so the caller can fall back to the remote URL.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return false, ErrBlocked
		}
		retry, retryErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry || retryErr != nil {
			return retry, retryErr
		}
		// Default policy only retries 5xx; the downloader retries any non-2xx.
		if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			return true, nil
		}
		return false, nil
	}

	return &Downloader{mediaDir: mediaDir, client: client}
}

// Download fetches mediaURL into the bookmark's media directory and returns
// the local path. If the destination file already exists it is returned
// without a network fetch. Returns ErrBlocked on a 403.
func (d *Downloader) Download(mediaURL, bookmarkID string) (string, error) {
	destDir := filepath.Join(d.mediaDir, SanitizeID(bookmarkID))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	filename := filenameFromURL(mediaURL)
	dest := filepath.Join(destDir, filename)

	// Idempotent: a prior download of the same URL is reused as-is. Only
	// applies when the URL path carried an extension; otherwise the final
	// name depends on the response content type.
	if path.Ext(filename) != "" {
		if _, err := os.Stat(dest); err == nil {
			return dest, nil
		}
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, ErrBlocked) {
			return "", ErrBlocked
		}
		return "", fmt.Errorf("media fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusForbidden {
			return "", ErrBlocked
		}
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, mediaURL)
	}

	if path.Ext(filename) == "" {
		filename += extForContentType(resp.Header.Get("Content-Type"))
		dest = filepath.Join(destDir, filename)
		if _, err := os.Stat(dest); err == nil {
			io.Copy(io.Discard, resp.Body)
			return dest, nil
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	return dest, nil
}

// SanitizeID restricts an external bookmark id to filesystem-safe characters.
func SanitizeID(id string) string {
	safe := unsafePathChars.ReplaceAllString(id, "")
	if len(safe) > 200 {
		safe = safe[:200]
	}
	if safe == "" {
		safe = "item"
	}
	return safe
}

// filenameFromURL derives a filename from the URL path, dropping query and
// fragment. An empty path gets a timestamp-based fallback name.
func filenameFromURL(mediaURL string) string {
	name := ""
	if u, err := url.Parse(mediaURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("media-%d", time.Now().UnixNano())
	}
	return strings.TrimSpace(name)
}

func extForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if ext, ok := extByContentType[strings.TrimSpace(ct)]; ok {
		return ext
	}
	return ".jpg"
}
