// Package extract turns a source URL into the article form the
// pipeline consumes: markdown with inline image markers plus the
// ordered image list the markers index into.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// Extractor fetches one source URL into an Article.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*types.Article, error)
}

// ForSource returns the extractor for the named source. "auto" picks
// by host: reddit links go through the Reddit API, everything else
// through the generic HTML extractor.
func ForSource(cfg config.ExtractConfig, source, rawURL string) (Extractor, error) {
	switch source {
	case "generic":
		return NewGeneric(cfg), nil
	case "reddit":
		return NewReddit(cfg)
	case "", "auto":
		if isRedditURL(rawURL) {
			return NewReddit(cfg)
		}
		return NewGeneric(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func isRedditURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com") || host == "redd.it"
}
