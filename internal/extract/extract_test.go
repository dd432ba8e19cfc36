package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"article-video-pipeline/config"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Site Name - The Vanishing</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>The Vanishing of Route 9</h1>
<p>On a cold night in 1987, a truck disappeared without a trace.</p>
<img src="/images/truck.jpg" alt="the truck">
<p>Investigators combed the highway for weeks.</p>
<h2>The Investigation</h2>
<p>No debris was ever recovered.</p>
<img src="data:image/gif;base64,R0lGOD=" alt="tracking pixel">
</article>
<footer>Copyright</footer>
<script>analytics()</script>
</body>
</html>`

func TestGenericExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	g := NewGeneric(config.ExtractConfig{UserAgent: "test-agent", TimeoutSec: 5})
	article, err := g.Extract(context.Background(), srv.URL+"/story")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if article.Title != "The Vanishing of Route 9" {
		t.Errorf("title = %q", article.Title)
	}
	if len(article.Images) != 1 {
		t.Fatalf("images = %v, want 1 (data: URI dropped)", article.Images)
	}
	if article.Images[0] != srv.URL+"/images/truck.jpg" {
		t.Errorf("image = %q, want resolved absolute URL", article.Images[0])
	}
	if !strings.Contains(article.Markdown, "$1$") {
		t.Errorf("markdown missing image marker:\n%s", article.Markdown)
	}
	if !strings.Contains(article.Markdown, "## The Investigation") {
		t.Errorf("markdown missing heading:\n%s", article.Markdown)
	}
	if strings.Contains(article.Markdown, "Home") || strings.Contains(article.Markdown, "Copyright") {
		t.Errorf("markdown includes page chrome:\n%s", article.Markdown)
	}
	if strings.Contains(article.Markdown, "analytics") {
		t.Errorf("markdown includes script text:\n%s", article.Markdown)
	}
}

func TestGenericExtract_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGeneric(config.ExtractConfig{UserAgent: "ua"})
	if _, err := g.Extract(context.Background(), srv.URL); err == nil {
		t.Error("expected error on HTTP 404")
	}
}

func TestGenericExtract_BodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Plain Page</title></head><body><p>Just one paragraph.</p></body></html>`))
	}))
	defer srv.Close()

	g := NewGeneric(config.ExtractConfig{UserAgent: "ua"})
	article, err := g.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Title != "Plain Page" {
		t.Errorf("title = %q", article.Title)
	}
	if !strings.Contains(article.Markdown, "Just one paragraph.") {
		t.Errorf("markdown = %q", article.Markdown)
	}
}

func TestPostID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.reddit.com/r/news/comments/abc123/some_slug/", "abc123", false},
		{"https://old.reddit.com/r/news/comments/xyz9/", "xyz9", false},
		{"https://redd.it/abc123", "abc123", false},
		{"https://www.reddit.com/r/news/", "", true},
		{"not a url ://", "", true},
	}
	for _, tt := range tests {
		got, err := PostID(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("PostID(%q): expected error", tt.url)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("PostID(%q) = %q, %v; want %q", tt.url, got, err, tt.want)
		}
	}
}

func TestForSource(t *testing.T) {
	cfg := config.ExtractConfig{UserAgent: "ua"}

	e, err := ForSource(cfg, "auto", "https://example.com/story")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*Generic); !ok {
		t.Errorf("auto non-reddit = %T, want *Generic", e)
	}

	e, err = ForSource(cfg, "auto", "https://www.reddit.com/r/news/comments/abc/x/")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*Reddit); !ok {
		t.Errorf("auto reddit = %T, want *Reddit", e)
	}

	if _, err := ForSource(cfg, "rss", "https://example.com"); err == nil {
		t.Error("expected error for unknown source")
	}
}
