// Package stock finds and downloads stock footage for segments that
// carry no article image. Providers are interchangeable: anything that
// can turn a query into candidate clips plugs in.
package stock

import (
	"context"
	"errors"
	"net/http"
	"time"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// ErrNoVisualAvailable is returned when every keyword against the
// provider yields no usable candidate. The caller owns the fallback
// policy; this package never silently substitutes a clip.
var ErrNoVisualAvailable = errors.New("no visual available")

// Candidate is one downloadable clip offered by a provider.
type Candidate struct {
	ID       string
	URL      string
	Duration float64
	Width    int
	Height   int
}

// Provider searches a stock-media backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, aspect types.Aspect, perPage int) ([]Candidate, error)
}

// NewProvider returns the configured provider implementation.
func NewProvider(cfg config.StockConfig) (Provider, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	switch cfg.Provider {
	case "pexels":
		return &PexelsProvider{apiKey: cfg.PexelsKey, client: client}, nil
	case "pixabay":
		return &PixabayProvider{apiKey: cfg.PixabayKey, client: client}, nil
	default:
		return nil, errors.New("unknown stock provider " + cfg.Provider)
	}
}

// aspectFits reports whether a candidate's frame orientation matches
// the requested aspect closely enough to letterbox without heavy bars.
func aspectFits(c Candidate, aspect types.Aspect) bool {
	if c.Width == 0 || c.Height == 0 {
		return true // provider did not say; let ffmpeg letterbox it
	}
	switch aspect {
	case types.AspectPortrait:
		return c.Height >= c.Width
	case types.AspectLandscape:
		return c.Width >= c.Height
	default:
		return true
	}
}
