package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tharindu/ikmanwatcher/helpers"
	"tharindu/ikmanwatcher/internal/crawler"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/pkg/errors"
)

// DefaultAPIBase is the production Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

const (
	defaultMaxImages = 10
	maxAttempts      = 5
	providerName     = "Telegram"
)

// Notifier delivers one ad per call to a chat.
type Notifier interface {
	SendAd(ctx context.Context, ad crawler.Ad) error
}

// Config carries the chat credentials and delivery knobs for a Client.
type Config struct {
	BotToken string
	ChatID   string

	// MaxImages caps the photos per album; zero means the platform
	// default of 10.
	MaxImages int

	// RatePerMinute paces sends to stay under the chat's flood limit;
	// zero disables pacing.
	RatePerMinute int

	// APIBase overrides the Bot API host, used by tests.
	APIBase string
}

// Client sends ads to a Telegram chat as photo albums over the Bot API.
// Ads without photos fall back to a plain text message.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	chatID     string
	maxImages  int
	limiter    *rate.Limiter
	sleep      func(time.Duration)
	log        *logger.Logger
}

var _ Notifier = (*Client)(nil)

// NewClient creates a new Telegram client
func NewClient(cfg Config) *Client {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	maxImages := cfg.MaxImages
	if maxImages <= 0 {
		maxImages = defaultMaxImages
	}
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    strings.TrimRight(apiBase, "/"),
		token:      normalizeToken(cfg.BotToken),
		chatID:     cfg.ChatID,
		maxImages:  maxImages,
		limiter:    limiter,
		sleep:      time.Sleep,
		log:        logger.ForTelegram(),
	}
}

// normalizeToken strips the "bot" prefix people copy from API URLs.
func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	return strings.TrimPrefix(token, "bot")
}

// mediaItem is one entry of a sendMediaGroup payload.
type mediaItem struct {
	Type      string `json:"type"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after"`
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

// SendAd delivers one ad: a photo album with one caption on the first
// photo, or a plain message when the ad has no photos.
func (c *Client) SendAd(ctx context.Context, ad crawler.Ad) error {
	urls := ad.PhotoURLs(c.maxImages)
	if len(urls) == 0 {
		c.log.Debug().Str("ad_id", ad.ID).Msg("no photos, sending plain message")
		if err := c.sendMessage(ctx, adMessage(ad)); err != nil {
			return errors.NewDelivery(providerName, "send message failed", err)
		}
		return nil
	}

	caption := adCaption(ad)
	media := make([]mediaItem, 0, len(urls))
	for i, url := range urls {
		item := mediaItem{Type: "photo", Media: url}
		if i == 0 && caption != "" {
			item.Caption = caption
			item.ParseMode = "Markdown"
		}
		media = append(media, item)
	}

	if err := c.sendMediaGroup(ctx, media); err != nil {
		return errors.NewDelivery(providerName, "send media group failed", err)
	}
	return nil
}

func (c *Client) sendMediaGroup(ctx context.Context, media []mediaItem) error {
	return c.post(ctx, "sendMediaGroup", map[string]interface{}{
		"chat_id": c.chatID,
		"media":   media,
	})
}

func (c *Client) sendMessage(ctx context.Context, text string) error {
	return c.post(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
}

// post sends one Bot API call with the retry policy the API asks for:
// flood-limited calls wait out retry_after, network errors back off
// exponentially, bad requests fail immediately.
func (c *Client) post(ctx context.Context, method string, payload interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts-1 {
				delay := time.Duration(1<<attempt) * time.Second
				c.log.Warn().Err(err).Dur("backoff", delay).Str("method", method).Msg("request failed, retrying")
				c.sleep(delay)
				continue
			}
			break
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read %s response: %w", method, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := retryAfterSeconds(respBody)
			lastErr = fmt.Errorf("%s: too many requests, retry after %ds", method, retryAfter)
			if attempt < maxAttempts-1 {
				c.log.Warn().Int("retry_after", retryAfter).Str("method", method).Msg("flood limited")
				c.sleep(time.Duration(retryAfter+1) * time.Second)
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%s bad request: %s (check image URLs or caption length)", method, clip(respBody))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s status %d: %s", method, resp.StatusCode, clip(respBody))
		}

		var parsed apiResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("%s: invalid response: %s", method, clip(respBody))
		}
		if !parsed.OK {
			return fmt.Errorf("%s: api error: %s", method, parsed.Description)
		}
		return nil
	}
	return lastErr
}

// retryAfterSeconds pulls parameters.retry_after out of a flood-limit
// response, defaulting to 5 when the body does not carry one.
func retryAfterSeconds(body []byte) int {
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 5
	}
	if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
		return parsed.Parameters.RetryAfter
	}
	return 5
}

func clip(body []byte) string {
	return helpers.Truncate(string(body), 500)
}
