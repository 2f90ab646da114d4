package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tharindu/ikmanwatcher/internal/crawler"
	"tharindu/ikmanwatcher/pkg/errors"
	"tharindu/ikmanwatcher/services/cache"
	"tharindu/ikmanwatcher/services/telegram"
	"tharindu/ikmanwatcher/services/tracker"
	"tharindu/ikmanwatcher/services/worker"
)

// memoryCache is an in-memory stand-in for memcache.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ cache.CacheService = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.items[key]; ok {
		return val, nil
	}
	return nil, cache.ErrNotFound
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// searchPage renders a search results page the way the site serves it: the
// listing records inlined as JSON under window.initialData.
func searchPage(t *testing.T, ads []map[string]interface{}) string {
	t.Helper()
	payload := map[string]interface{}{
		"serp": map[string]interface{}{
			"ads": map[string]interface{}{
				"data": map[string]interface{}{
					"ads": ads,
					"paginationData": map[string]interface{}{
						"total": len(ads),
					},
				},
			},
		},
	}
	blob, err := json.Marshal(payload)
	require.NoError(t, err)
	return `<!DOCTYPE html><html><head><script>window.initialData = ` + string(blob) + `;</script></head><body></body></html>`
}

func houseRecord(id, title, price string) map[string]interface{} {
	return map[string]interface{}{
		"id":    id,
		"slug":  "house-" + id,
		"title": title,
		"price": price,
		"images": map[string]interface{}{
			"ids":      []string{"img-" + id},
			"base_uri": "https://i.ikman-st.com",
		},
	}
}

// telegramRecorder fakes the Bot API and records every media group it gets.
type telegramRecorder struct {
	mu     sync.Mutex
	albums [][]map[string]interface{}
}

func (r *telegramRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			Media []map[string]interface{} `json:"media"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.albums = append(r.albums, payload.Media)
		r.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}
}

func (r *telegramRecorder) captions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, album := range r.albums {
		if len(album) > 0 {
			caption, _ := album[0]["caption"].(string)
			out = append(out, caption)
		}
	}
	return out
}

// TestWatcherEndToEnd runs the whole flow against fake site and Bot API
// servers: two overlapping search pages in, filtered photo albums out.
func TestWatcherEndToEnd(t *testing.T) {
	pageOne := searchPage(t, []map[string]interface{}{
		houseRecord("h1", "Modern house in Dehiwala", "Rs 15,000,000"),
		houseRecord("h2", "Luxury villa", "Rs 85,000,000"),
		houseRecord("h3", "Cozy cottage", "Rs 9,500,000"),
	})
	pageTwo := searchPage(t, []map[string]interface{}{
		houseRecord("h3", "Cozy cottage", "Rs 9,500,000"),
		houseRecord("h4", "Family home", "Rs 18,000,000"),
	})

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, pageTwo)
			return
		}
		fmt.Fprint(w, pageOne)
	}))
	defer site.Close()

	recorder := &telegramRecorder{}
	botAPI := httptest.NewServer(recorder.handler())
	defer botAPI.Close()

	cacheSvc := newMemoryCache()
	fetcher := crawler.NewHTTPPageFetcher(site.Client(), "Ikman", cacheSvc, time.Minute)

	priceMax := int64(20000000)
	ikman := crawler.NewIkmanCrawler(crawler.IkmanConfig{
		URL:      site.URL,
		Pages:    2,
		PriceMax: &priceMax,
	}, fetcher)

	notifier := telegram.NewClient(telegram.Config{
		BotToken: "123:ABC",
		ChatID:   "-100200300",
		APIBase:  botAPI.URL,
	})

	track := tracker.NewCacheTracker(cacheSvc, 0)
	w := worker.NewWorker(ikman, notifier, track, nil, 0)

	err := w.RunOnce(context.Background())
	require.NoError(t, err)

	// h2 is over the ceiling, h3 appears once despite being on both pages
	captions := recorder.captions()
	require.Len(t, captions, 3)
	assert.Contains(t, captions[0], "Modern house in Dehiwala")
	assert.Contains(t, captions[1], "Cozy cottage")
	assert.Contains(t, captions[2], "Family home")

	// A second run delivers nothing: every ad is tracked as sent
	err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, recorder.captions(), 3)
}

// TestWatcherMissingDataBlock serves a page without the embedded data block
// and expects the run to abort before any delivery.
func TestWatcherMissingDataBlock(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1>We are down for maintenance</h1></body></html>`)
	}))
	defer site.Close()

	recorder := &telegramRecorder{}
	botAPI := httptest.NewServer(recorder.handler())
	defer botAPI.Close()

	fetcher := crawler.NewHTTPPageFetcher(site.Client(), "Ikman", nil, 0)
	ikman := crawler.NewIkmanCrawler(crawler.IkmanConfig{URL: site.URL}, fetcher)
	notifier := telegram.NewClient(telegram.Config{BotToken: "123:ABC", ChatID: "42", APIBase: botAPI.URL})
	w := worker.NewWorker(ikman, notifier, nil, nil, 0)

	err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsParsing(err))
	assert.Equal(t, 1, errors.PageOf(err))
	assert.Empty(t, recorder.albums, "no delivery may happen after a failed crawl")
}
