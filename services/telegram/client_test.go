package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tharindu/ikmanwatcher/internal/crawler"
)

func photoAd() crawler.Ad {
	return crawler.Ad{
		ID:    "h1",
		Slug:  "two-story-house",
		Title: "Two Story House",
		Price: "Rs 12,000,000",
		Images: crawler.Images{
			IDs:     []string{"im1", "im2"},
			BaseURI: "https://i.ikman-st.com",
		},
	}
}

type mediaGroupPayload struct {
	ChatID string      `json:"chat_id"`
	Media  []mediaItem `json:"media"`
}

type messagePayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func TestSendAdMediaGroup(t *testing.T) {
	var gotPath string
	var gotPayload mediaGroupPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BotToken: "123:ABC",
		ChatID:   "-100200300",
		APIBase:  server.URL,
	})

	err := client.SendAd(context.Background(), photoAd())
	assert.NoError(t, err)

	assert.Equal(t, "/bot123:ABC/sendMediaGroup", gotPath)
	assert.Equal(t, "-100200300", gotPayload.ChatID)
	assert.Len(t, gotPayload.Media, 2)

	first := gotPayload.Media[0]
	assert.Equal(t, "photo", first.Type)
	assert.Equal(t, "https://i.ikman-st.com/two-story-house/im1/620/466/fitted.jpg", first.Media)
	assert.Contains(t, first.Caption, "*Two Story House*")
	assert.Contains(t, first.Caption, "Rs 12,000,000")
	assert.Equal(t, "Markdown", first.ParseMode)

	second := gotPayload.Media[1]
	assert.Empty(t, second.Caption, "only the first photo carries the caption")
	assert.Empty(t, second.ParseMode)
}

func TestSendAdWithoutPhotosFallsBackToMessage(t *testing.T) {
	var gotPath string
	var gotPayload messagePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "123:ABC", ChatID: "42", APIBase: server.URL})

	ad := crawler.Ad{ID: "h2", Slug: "no-photo-house", Title: "No Photo House", Price: "Rs 5,000,000"}
	err := client.SendAd(context.Background(), ad)
	assert.NoError(t, err)

	assert.Equal(t, "/bot123:ABC/sendMessage", gotPath)
	assert.Equal(t, "42", gotPayload.ChatID)
	assert.True(t, gotPayload.DisableWebPagePreview)
	assert.Contains(t, gotPayload.Text, "No Photo House")
	assert.Contains(t, gotPayload.Text, "https://ikman.lk/en/ad/no-photo-house")
}

func TestSendAdMaxImages(t *testing.T) {
	var gotPayload mediaGroupPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL, MaxImages: 2})

	ad := photoAd()
	ad.Images.IDs = []string{"im1", "im2", "im3", "im4"}
	err := client.SendAd(context.Background(), ad)
	assert.NoError(t, err)
	assert.Len(t, gotPayload.Media, 2)
}

func TestSendAdRetriesOnFloodLimit(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"parameters":{"retry_after":7}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL})
	var slept []time.Duration
	client.sleep = func(d time.Duration) { slept = append(slept, d) }

	err := client.SendAd(context.Background(), photoAd())
	assert.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Equal(t, []time.Duration{8 * time.Second}, slept, "waits retry_after plus one second")
}

func TestSendAdFloodLimitExhaustsAttempts(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"parameters":{"retry_after":1}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL})
	client.sleep = func(time.Duration) {}

	err := client.SendAd(context.Background(), photoAd())
	assert.Error(t, err)
	assert.Equal(t, maxAttempts, hits)
}

func TestSendAdBadRequestFailsFast(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: wrong file identifier"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL})
	client.sleep = func(time.Duration) { t.Fatal("bad requests must not retry") }

	err := client.SendAd(context.Background(), photoAd())
	assert.Error(t, err)
	assert.Equal(t, 1, hits)
	assert.Contains(t, err.Error(), "check image URLs or caption length")
}

func TestSendAdNetworkErrorBacksOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails to connect

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL})
	var slept []time.Duration
	client.sleep = func(d time.Duration) { slept = append(slept, d) }

	err := client.SendAd(context.Background(), photoAd())
	assert.Error(t, err)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, slept, "exponential backoff between attempts")
}

func TestSendAdAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", ChatID: "c", APIBase: server.URL})
	err := client.SendAd(context.Background(), photoAd())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "123:ABC", normalizeToken("bot123:ABC"))
	assert.Equal(t, "123:ABC", normalizeToken("  123:ABC "))
	assert.Equal(t, "", normalizeToken(""))
}
