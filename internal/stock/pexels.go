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

const pexelsBaseURL = "https://api.pexels.com/videos/search"

// PexelsProvider queries the Pexels video search API.
type PexelsProvider struct {
	apiKey  string
	client  *http.Client
	baseURL string // test override
}

type pexelsResponse struct {
	Videos []struct {
		ID         int     `json:"id"`
		Duration   float64 `json:"duration"`
		VideoFiles []struct {
			Link     string `json:"link"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			FileType string `json:"file_type"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (p *PexelsProvider) Name() string { return "pexels" }

func (p *PexelsProvider) Search(ctx context.Context, query string, aspect types.Aspect, perPage int) ([]Candidate, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("PEXELS_API_KEY not set")
	}

	base := p.baseURL
	if base == "" {
		base = pexelsBaseURL
	}
	orientation := map[types.Aspect]string{
		types.AspectPortrait:  "portrait",
		types.AspectLandscape: "landscape",
		types.AspectSquare:    "square",
	}[aspect]

	reqURL := fmt.Sprintf("%s?query=%s&per_page=%d&orientation=%s",
		base, url.QueryEscape(query), perPage, orientation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels search: HTTP %d", resp.StatusCode)
	}

	var result pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pexels response: %w", err)
	}

	var candidates []Candidate
	for _, v := range result.Videos {
		// Largest mp4 rendition wins.
		best := -1
		for i, f := range v.VideoFiles {
			if f.FileType != "video/mp4" {
				continue
			}
			if best == -1 || f.Width*f.Height > v.VideoFiles[best].Width*v.VideoFiles[best].Height {
				best = i
			}
		}
		if best == -1 {
			continue
		}
		f := v.VideoFiles[best]
		c := Candidate{
			ID:       strconv.Itoa(v.ID),
			URL:      f.Link,
			Duration: v.Duration,
			Width:    f.Width,
			Height:   f.Height,
		}
		if aspectFits(c, aspect) {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}
