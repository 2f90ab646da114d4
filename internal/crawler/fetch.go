package crawler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tharindu/ikmanwatcher/helpers"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/services/cache"
)

// HTTPPageFetcher fetches search pages over plain HTTP with browser headers.
// When a cache service is configured it also enforces a block window after
// the site rate-limits us, so a crawl loop cannot hammer a throttling site.
type HTTPPageFetcher struct {
	Client    *http.Client
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration
}

// NewHTTPPageFetcher builds a fetcher for the named provider. cacheSvc may
// be nil, which disables the block window.
func NewHTTPPageFetcher(client *http.Client, provider string, cacheSvc cache.CacheService, blockTime time.Duration) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		Client:    client,
		CacheSvc:  cacheSvc,
		CacheKey:  provider + "_rate_limited",
		BlockTime: blockTime,
	}
}

// Fetch retrieves one page and returns its HTML decoded to UTF-8.
func (f *HTTPPageFetcher) Fetch(url string) (string, error) {
	if f.CacheSvc != nil && f.CacheKey != "" {
		if _, err := f.CacheSvc.Get(f.CacheKey); err == nil {
			return "", fmt.Errorf("%s: blocked for %d seconds: %w", f.CacheKey, f.BlockTime/time.Second, helpers.ErrRateLimited)
		}
	}

	body, err := helpers.FetchWithBrowserHeaders(f.Client, url)
	if err != nil {
		if errors.Is(err, helpers.ErrRateLimited) && f.CacheSvc != nil && f.CacheKey != "" {
			// the rate limit stays the reported failure even when the
			// block marker cannot be written
			if setErr := f.CacheSvc.Set(f.CacheKey, []byte(fmt.Sprintf("%d", f.BlockTime/time.Second)), f.BlockTime); setErr != nil {
				logger.Warn("failed to record rate limit block %s: %v", f.CacheKey, setErr)
			}
		}
		return "", err
	}

	html, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(html), nil
}
