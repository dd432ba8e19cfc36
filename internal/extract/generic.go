package extract

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/segment"
	"article-video-pipeline/internal/types"
)

// Generic extracts any article-shaped HTML page: headings and
// paragraphs become markdown, inline images keep their position.
type Generic struct {
	client    *http.Client
	userAgent string
}

func NewGeneric(cfg config.ExtractConfig) *Generic {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generic{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

func (g *Generic) Extract(ctx context.Context, rawURL string) (*types.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch article: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse article HTML: %w", err)
	}

	base, _ := url.Parse(rawURL)
	title := pageTitle(doc)
	md := buildMarkdown(doc, title, base)

	markered, images := segment.ExtractImages(md)
	log.Printf("[extract] %q: %d chars, %d images", title, len(markered), len(images))

	return &types.Article{
		Title:    title,
		Markdown: markered,
		Images:   images,
		Source:   "generic",
		URL:      rawURL,
	}, nil
}

func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// buildMarkdown walks the content root in document order. Pages with
// an <article> element use it as the root; otherwise the body is used
// with navigation chrome stripped.
func buildMarkdown(doc *goquery.Document, title string, base *url.URL) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.Find("script, style, nav, header, footer, aside, form").Remove()

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	root.Find("h2, h3, p, img, li").Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2", "h3":
			if t := strings.TrimSpace(s.Text()); t != "" {
				fmt.Fprintf(&b, "## %s\n\n", t)
			}
		case "img":
			if src := imageSrc(s, base); src != "" {
				fmt.Fprintf(&b, "![](%s)\n\n", src)
			}
		default:
			// Paragraphs nested inside list items already surfaced as p.
			if s.Find("p").Length() > 0 {
				return
			}
			if t := strings.TrimSpace(s.Text()); t != "" {
				fmt.Fprintf(&b, "%s\n\n", t)
			}
		}
	})
	return b.String()
}

func imageSrc(s *goquery.Selection, base *url.URL) string {
	src, ok := s.Attr("src")
	if !ok || src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
