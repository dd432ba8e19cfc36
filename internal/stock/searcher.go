package stock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"article-video-pipeline/internal/cache"
	"article-video-pipeline/internal/media"
	"article-video-pipeline/internal/types"
)

// clipFitter is the slice of media.Converter the Searcher needs.
type clipFitter interface {
	TrimOrLoop(ctx context.Context, clipPath string, targetDur float64, aspect types.Aspect, outPath string) (string, error)
}

// Searcher walks ranked keywords against a provider until it finds a
// candidate long enough to cover the target duration, downloads it
// through the asset cache and trims it to the exact target.
type Searcher struct {
	provider  Provider
	store     *cache.Cache
	conv      clipFitter
	client    *http.Client
	userAgent string
	perPage   int
}

// NewSearcher wires a Searcher.
func NewSearcher(provider Provider, store *cache.Cache, conv *media.Converter, userAgent string, perPage int) *Searcher {
	return &Searcher{
		provider:  provider,
		store:     store,
		conv:      conv,
		client:    &http.Client{Timeout: 120 * time.Second},
		userAgent: userAgent,
		perPage:   perPage,
	}
}

// Search resolves keywords to a prepared clip of exactly targetDur
// seconds at outPath. Keywords are tried best-first; within a keyword,
// candidates in provider order. Returns ErrNoVisualAvailable when the
// keyword list is exhausted.
func (s *Searcher) Search(ctx context.Context, keywordList []string, aspect types.Aspect, targetDur float64, outPath string) (string, error) {
	for _, keyword := range keywordList {
		candidates, err := s.provider.Search(ctx, keyword, aspect, s.perPage)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("[stock] %s search %q failed: %v", s.provider.Name(), keyword, err)
			continue
		}

		for _, c := range candidates {
			if c.Duration < targetDur {
				continue
			}
			clip, err := s.prepare(ctx, c, aspect, targetDur, outPath)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				log.Printf("[stock] candidate %s/%s unusable: %v", s.provider.Name(), c.ID, err)
				continue
			}
			log.Printf("[stock] %q matched %s clip %s (%.1fs source)", keyword, s.provider.Name(), c.ID, c.Duration)
			return clip, nil
		}
	}
	return "", ErrNoVisualAvailable
}

// prepare downloads the candidate (dedup'd by cache key) and fits it to
// the target duration. A corrupt download is surfaced, not retried.
func (s *Searcher) prepare(ctx context.Context, c Candidate, aspect types.Aspect, targetDur float64, outPath string) (string, error) {
	key := fmt.Sprintf("%s|%s", s.provider.Name(), c.URL)
	fetch := cache.WithRetry(3, 2*time.Second, cache.DownloadURL(s.client, c.URL, s.userAgent))

	src, err := s.store.GetOrFetch(ctx, key, videoExt(c.URL), fetch)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	clip, err := s.conv.TrimOrLoop(ctx, src, targetDur, aspect, outPath)
	if err != nil {
		if errors.Is(err, media.ErrAssetCorrupt) {
			return "", err
		}
		return "", fmt.Errorf("fit to %.1fs: %w", targetDur, err)
	}
	return clip, nil
}

func videoExt(rawURL string) string {
	if ext := cache.ExtForURL(rawURL); ext == ".mp4" || ext == ".mov" || ext == ".webm" {
		return ext
	}
	return ".mp4"
}
