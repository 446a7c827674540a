package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "NewsDigest/1.0"

// Fetcher opens feed and page locations. http(s) URLs are fetched with a
// per-host rate limit; anything else is read from the local filesystem.
type Fetcher struct {
	client *http.Client
	rps    float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher wires an HTTP client; rps <= 0 disables throttling.
func NewFetcher(client *http.Client, rps float64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{client: client, rps: rps, limiters: map[string]*rate.Limiter{}}
}

// Open returns the body behind location. Callers close it.
func (f *Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isRemote(location) {
		file, err := os.Open(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return file, nil
	}

	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", location, err)
	}
	if err := f.wait(ctx, parsed.Host); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", parsed.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", location, resp.Status)
	}
	return resp.Body, nil
}

func (f *Fetcher) wait(ctx context.Context, host string) error {
	if f.rps <= 0 {
		return nil
	}

	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
