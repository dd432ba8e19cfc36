package extract

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/segment"
	"article-video-pipeline/internal/types"
)

// Reddit extracts a post through the Reddit API. Script credentials
// come from the environment; without them a read-only client is used.
type Reddit struct {
	client *reddit.Client
}

func NewReddit(cfg config.ExtractConfig) (*Reddit, error) {
	creds := reddit.Credentials{
		ID:       os.Getenv("REDDIT_CLIENT_ID"),
		Secret:   os.Getenv("REDDIT_CLIENT_SECRET"),
		Username: os.Getenv("REDDIT_USERNAME"),
		Password: os.Getenv("REDDIT_PASSWORD"),
	}

	var client *reddit.Client
	var err error
	if creds.ID != "" && creds.Secret != "" {
		client, err = reddit.NewClient(creds, reddit.WithUserAgent(cfg.UserAgent))
	} else {
		client, err = reddit.NewReadonlyClient(reddit.WithUserAgent(cfg.UserAgent))
	}
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Reddit{client: client}, nil
}

func (r *Reddit) Extract(ctx context.Context, rawURL string) (*types.Article, error) {
	postID, err := PostID(rawURL)
	if err != nil {
		return nil, err
	}

	pc, _, err := r.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("fetch reddit post %s: %w", postID, err)
	}
	post := pc.Post

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", post.Title)
	if isImageLink(post.URL) {
		fmt.Fprintf(&b, "![](%s)\n\n", post.URL)
	}
	if post.Body != "" {
		b.WriteString(post.Body)
		b.WriteString("\n")
	}

	markered, images := segment.ExtractImages(b.String())
	log.Printf("[extract] r/%s post %s: %d chars, %d images",
		post.SubredditName, postID, len(markered), len(images))

	return &types.Article{
		Title:    post.Title,
		Markdown: markered,
		Images:   images,
		Source:   "reddit",
		URL:      rawURL,
	}, nil
}

// PostID pulls the base36 post ID out of a reddit permalink, e.g.
// https://www.reddit.com/r/news/comments/abc123/some_slug/ -> abc123.
func PostID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse reddit url: %w", err)
	}
	if strings.EqualFold(u.Hostname(), "redd.it") {
		id := strings.Trim(u.Path, "/")
		if id != "" && !strings.Contains(id, "/") {
			return id, nil
		}
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "comments" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no post id in %s", rawURL)
}

func isImageLink(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
