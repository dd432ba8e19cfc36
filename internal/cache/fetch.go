package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// TransientError marks a fetch failure worth retrying: network errors,
// timeouts, throttling. Anything else is permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// WithRetry wraps fetch with bounded exponential backoff. Only
// transient failures are retried; permanent errors and context
// cancellation return immediately. Retry lives here, at the fetch
// boundary, so the orchestrator never re-runs whole segments.
func WithRetry(attempts int, base time.Duration, fetch FetchFunc) FetchFunc {
	return func(ctx context.Context, dst string) error {
		var err error
		for attempt := 1; attempt <= attempts; attempt++ {
			err = fetch(ctx, dst)
			if err == nil || !IsTransient(err) {
				return err
			}
			if attempt == attempts {
				break
			}
			delay := base * time.Duration(1<<(attempt-1))
			log.Printf("[cache] fetch attempt %d failed: %v — retrying in %s", attempt, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	}
}

// DownloadURL returns a FetchFunc that GETs url and writes the body to
// dst. HTTP 5xx and 429 responses and transport errors are transient;
// other non-200 statuses are permanent.
func DownloadURL(client *http.Client, url, userAgent string) FetchFunc {
	return func(ctx context.Context, dst string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Transient(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return Transient(fmt.Errorf("HTTP %d from %s", resp.StatusCode, url))
		default:
			return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
		}

		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		n, err := io.Copy(out, resp.Body)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Transient(err)
		}
		// A tiny body is an error page, not an asset.
		if n < 100 {
			return fmt.Errorf("response too small (%d bytes) — likely an error page", n)
		}
		return nil
	}
}
