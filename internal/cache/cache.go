// Package cache is a content-addressed store for fetched assets. Keys
// are fingerprints of the fetch request (source URL, or search tuple),
// not hashes of the bytes, since remote bytes are unknown before the
// fetch. Entries persist across runs; a sibling ".done" marker written
// only after a successful fetch distinguishes complete entries from
// partials left by a crashed run.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FetchFunc downloads or produces the asset at dst. It must honor ctx
// and leave no file behind on error.
type FetchFunc func(ctx context.Context, dst string) error

type flight struct {
	done chan struct{}
	path string
	err  error
}

// Cache dedupes fetches by key. At most one fetch per key is in flight
// at any time; concurrent callers for the same key wait for the result.
type Cache struct {
	root string

	mu       sync.Mutex
	inflight map[string]*flight
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Cache{root: dir, inflight: make(map[string]*flight)}, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// Fingerprint produces the stable key fingerprint for a fetch request.
func Fingerprint(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// GetOrFetch returns the local path for key, fetching it with fetch if
// it is not already cached. ext must include the leading dot.
func (c *Cache) GetOrFetch(ctx context.Context, key, ext string, fetch FetchFunc) (string, error) {
	fp := Fingerprint(key)
	path := filepath.Join(c.root, fp+ext)

	for {
		c.mu.Lock()
		if f, ok := c.inflight[fp]; ok {
			c.mu.Unlock()
			select {
			case <-f.done:
				// The owner's timeout or cancellation is its own. A
				// waiter whose context is still live starts a fresh
				// fetch rather than inheriting the abandonment.
				if isContextErr(f.err) && ctx.Err() == nil {
					continue
				}
				return f.path, f.err
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if c.isComplete(path) {
			c.mu.Unlock()
			return path, nil
		}

		f := &flight{done: make(chan struct{})}
		c.inflight[fp] = f
		c.mu.Unlock()

		f.path, f.err = c.doFetch(ctx, path, fetch)

		c.mu.Lock()
		delete(c.inflight, fp)
		c.mu.Unlock()
		close(f.done)

		return f.path, f.err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Cache) doFetch(ctx context.Context, path string, fetch FetchFunc) (string, error) {
	// A file without its marker is a partial from a crashed run.
	if _, err := os.Stat(path); err == nil {
		log.Printf("[cache] discarding partial entry %s", filepath.Base(path))
		_ = os.Remove(path)
	}

	if err := fetch(ctx, path); err != nil {
		// Never leave partial bytes behind an aborted fetch.
		_ = os.Remove(path)
		return "", err
	}

	if err := os.WriteFile(c.markerPath(path), nil, 0644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write completion marker: %w", err)
	}
	return path, nil
}

func (c *Cache) isComplete(path string) bool {
	if _, err := os.Stat(c.markerPath(path)); err != nil {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}

func (c *Cache) markerPath(path string) string { return path + ".done" }

// ExtForURL picks a file extension for a source URL, restricted to the
// formats downstream tooling accepts.
func ExtForURL(rawURL string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".mp4", ".mov", ".webm":
		return ext
	default:
		return ".jpg"
	}
}
