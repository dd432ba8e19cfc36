// Package visuals resolves one script segment into a duration-matched
// clip, choosing between the article's own image and stock footage.
package visuals

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"article-video-pipeline/internal/cache"
	"article-video-pipeline/internal/keywords"
	"article-video-pipeline/internal/types"
)

// KeywordSource turns narration text into ranked search terms.
type KeywordSource interface {
	SearchTerms(ctx context.Context, text string) ([]string, error)
}

// StockSearcher finds and prepares a stock clip for the keywords.
type StockSearcher interface {
	Search(ctx context.Context, keywordList []string, aspect types.Aspect, targetDur float64, outPath string) (string, error)
}

type imageAnimator interface {
	ToClip(ctx context.Context, imagePath string, targetDur float64, aspect types.Aspect, outPath string) (string, error)
}

// Resolver picks the strategy for a single segment. A valid image
// reference wins; everything else goes through stock search. The two
// branches are exclusive: an article image that fails is a segment
// failure, never a quiet switch to stock.
type Resolver struct {
	store     *cache.Cache
	conv      imageAnimator
	stock     StockSearcher
	kw        KeywordSource
	client    *http.Client
	userAgent string
	maxTerms  int
}

func NewResolver(store *cache.Cache, conv imageAnimator, stock StockSearcher, kw KeywordSource, userAgent string, maxTerms int) *Resolver {
	return &Resolver{
		store:     store,
		conv:      conv,
		stock:     stock,
		kw:        kw,
		client:    &http.Client{Timeout: 60 * time.Second},
		userAgent: userAgent,
		maxTerms:  maxTerms,
	}
}

// Resolve produces a clip of exactly targetDur seconds at outPath.
// imageList is the article's ordered image URLs; seg.ImageRef indexes
// into it 1-based. An out-of-range reference is a data-quality fault
// and falls through to stock search.
func (r *Resolver) Resolve(ctx context.Context, seg types.ScriptSegment, targetDur float64, imageList []string, aspect types.Aspect, outPath string) (types.ResolvedVisual, error) {
	if seg.HasImage() {
		if seg.ImageRef >= 1 && seg.ImageRef <= len(imageList) {
			return r.fromArticleImage(ctx, imageList[seg.ImageRef-1], targetDur, aspect, outPath)
		}
		log.Printf("[visuals] ⚠️ data-quality fault: segment %d references image %d of %d, using stock search",
			seg.SequenceIndex, seg.ImageRef, len(imageList))
	}
	return r.fromStock(ctx, seg, targetDur, aspect, outPath)
}

func (r *Resolver) fromArticleImage(ctx context.Context, imageURL string, targetDur float64, aspect types.Aspect, outPath string) (types.ResolvedVisual, error) {
	key := cache.Fingerprint("image", imageURL)
	fetch := cache.WithRetry(3, 2*time.Second, cache.DownloadURL(r.client, imageURL, r.userAgent))

	src, err := r.store.GetOrFetch(ctx, key, cache.ExtForURL(imageURL), fetch)
	if err != nil {
		return types.ResolvedVisual{}, fmt.Errorf("fetch article image: %w", err)
	}

	clip, err := r.conv.ToClip(ctx, src, targetDur, aspect, outPath)
	if err != nil {
		return types.ResolvedVisual{}, fmt.Errorf("animate article image: %w", err)
	}
	return types.ResolvedVisual{
		ClipPath:   clip,
		SourceKind: types.SourceArticleImage,
		Duration:   targetDur,
	}, nil
}

func (r *Resolver) fromStock(ctx context.Context, seg types.ScriptSegment, targetDur float64, aspect types.Aspect, outPath string) (types.ResolvedVisual, error) {
	terms := r.searchTerms(ctx, seg.Text)

	clip, err := r.stock.Search(ctx, terms, aspect, targetDur, outPath)
	if err != nil {
		return types.ResolvedVisual{}, err
	}
	return types.ResolvedVisual{
		ClipPath:   clip,
		SourceKind: types.SourceStockSearch,
		Duration:   targetDur,
	}, nil
}

// searchTerms asks the keyword generator, falling back to raw text
// tokens when the external call fails or returns nothing.
func (r *Resolver) searchTerms(ctx context.Context, text string) []string {
	terms, err := r.kw.SearchTerms(ctx, text)
	if err != nil {
		log.Printf("[visuals] keyword generation failed, using raw tokens: %v", err)
	}
	if len(terms) == 0 {
		terms = keywords.RawTokens(text, r.maxTerms)
	}
	return terms
}
