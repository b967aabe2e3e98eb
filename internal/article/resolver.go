package article

import (
	"net/http"
	"time"
)

// Resolver follows short-link redirects to a final URL.
type Resolver struct {
	client *http.Client
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve returns the final URL after redirects. It tries a HEAD request
// first; servers that reject HEAD get one follow-up GET. If both fail the
// original URL is returned unchanged, so resolution failure never breaks the
// pipeline. No retries on either strategy.
func (r *Resolver) Resolve(shortURL string) string {
	if final, ok := r.attempt(http.MethodHead, shortURL); ok {
		return final
	}
	if final, ok := r.attempt(http.MethodGet, shortURL); ok {
		return final
	}
	return shortURL
}

func (r *Resolver) attempt(method, rawURL string) (string, bool) {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return "", false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", false
	}
	return resp.Request.URL.String(), true
}
