package article

import (
	"net/url"
	"path"
	"strings"
)

// Hosts that serve social posts, short video, or raw media rather than
// long-form articles.
var skipHosts = map[string]bool{
	"twitter.com":        true,
	"x.com":              true,
	"mobile.twitter.com": true,
	"instagram.com":      true,
	"facebook.com":       true,
	"tiktok.com":         true,
	"youtube.com":        true,
	"youtu.be":           true,
	"twitch.tv":          true,
	"reddit.com":         true,
	"threads.net":        true,
	"pbs.twimg.com":      true,
	"video.twimg.com":    true,
	"abs.twimg.com":      true,
}

var mediaExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
	".svg":  true,
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m3u8": true,
}

// IsArticle is a coarse allow-by-default heuristic for whether a URL is worth
// running through article extraction. False positives are cheap (extraction
// fails downstream); false negatives are the accepted cost of simplicity.
func IsArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if skipHosts[host] {
		return false
	}
	// Subdomains of skip hosts, e.g. old.reddit.com or cdn.x.com.
	for skip := range skipHosts {
		if strings.HasSuffix(host, "."+skip) {
			return false
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if mediaExtensions[ext] {
		return false
	}

	return true
}
