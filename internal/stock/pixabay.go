package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"article-video-pipeline/internal/types"
)

const pixabayBaseURL = "https://pixabay.com/api/videos/"

// PixabayProvider queries the Pixabay video API.
type PixabayProvider struct {
	apiKey  string
	client  *http.Client
	baseURL string // test override
}

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayResponse struct {
	Hits []struct {
		ID       int                         `json:"id"`
		Duration float64                     `json:"duration"`
		Videos   map[string]pixabayRendition `json:"videos"`
	} `json:"hits"`
}

func (p *PixabayProvider) Name() string { return "pixabay" }

func (p *PixabayProvider) Search(ctx context.Context, query string, aspect types.Aspect, perPage int) ([]Candidate, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("PIXABAY_API_KEY not set")
	}

	base := p.baseURL
	if base == "" {
		base = pixabayBaseURL
	}
	if perPage < 3 {
		perPage = 3 // pixabay minimum
	}

	reqURL := fmt.Sprintf("%s?key=%s&q=%s&per_page=%d",
		base, url.QueryEscape(p.apiKey), url.QueryEscape(query), perPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay search: HTTP %d", resp.StatusCode)
	}

	var result pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pixabay response: %w", err)
	}

	var candidates []Candidate
	for _, hit := range result.Hits {
		best := pickRendition(hit.Videos)
		if best.URL == "" {
			continue
		}
		c := Candidate{
			ID:       strconv.Itoa(hit.ID),
			URL:      best.URL,
			Duration: hit.Duration,
			Width:    best.Width,
			Height:   best.Height,
		}
		if aspectFits(c, aspect) {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// pickRendition prefers the largest named rendition pixabay offers.
func pickRendition(videos map[string]pixabayRendition) pixabayRendition {
	for _, size := range []string{"large", "medium", "small", "tiny"} {
		if r, ok := videos[size]; ok && r.URL != "" {
			return r
		}
	}
	return pixabayRendition{}
}
