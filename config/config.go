package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config represents the application configuration. Values come from the
// environment (after main has loaded .env); optional integrations stay off
// when their address fields are empty.
type Config struct {
	// Telegram configuration
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	TelegramRate     int    `env:"TELEGRAM_RATE_PER_MINUTE" envDefault:"20"`

	// Crawl configuration
	IkmanURL  string `env:"IKMAN_URL" envDefault:"https://ikman.lk/en/ads/sri-lanka/houses-for-sale"`
	StartPage int    `env:"START_PAGE" envDefault:"1"`
	Pages     int    `env:"PAGES" envDefault:"1"`
	PriceMax  *int64 `env:"PRICE_MAX"`
	SendLimit *int   `env:"SEND_LIMIT"`
	MaxImages int    `env:"MAX_IMAGES" envDefault:"10"`

	// Fetch behavior
	FetchTimeoutSeconds  int `env:"FETCH_TIMEOUT_SECONDS" envDefault:"30"`
	FetchBlockSeconds    int `env:"FETCH_BLOCK_SECONDS" envDefault:"300"`
	CrawlIntervalSeconds int `env:"CRAWL_INTERVAL_SECONDS" envDefault:"0"`

	// Memcache configuration (sent-ad tracking and fetch block windows)
	MemcacheAddr string `env:"MEMCACHE_ADDR"`
	SentTTLHours int    `env:"SENT_TTL_HOURS" envDefault:"0"`

	// Redis configuration (delivered-ad stream)
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	RedisStream       string `env:"REDIS_STREAM" envDefault:"houseads"`
	RedisStreamMaxLen int    `env:"REDIS_STREAM_MAXLEN" envDefault:"500"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.StartPage < 1 {
		return fmt.Errorf("START_PAGE must be >= 1, got %d", c.StartPage)
	}
	if c.Pages < 1 {
		return fmt.Errorf("PAGES must be >= 1, got %d", c.Pages)
	}
	if c.MaxImages < 1 || c.MaxImages > 10 {
		return fmt.Errorf("MAX_IMAGES must be between 1 and 10, got %d", c.MaxImages)
	}
	if c.PriceMax != nil && *c.PriceMax < 0 {
		return fmt.Errorf("PRICE_MAX must not be negative, got %d", *c.PriceMax)
	}
	if c.SendLimit != nil && *c.SendLimit < 0 {
		return fmt.Errorf("SEND_LIMIT must not be negative, got %d", *c.SendLimit)
	}
	return nil
}

// FetchTimeout returns the HTTP timeout for page fetches.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// FetchBlock returns how long to back off after the site rate-limits us.
func (c *Config) FetchBlock() time.Duration {
	return time.Duration(c.FetchBlockSeconds) * time.Second
}

// CrawlInterval returns the pause between runs; zero means run once and exit.
func (c *Config) CrawlInterval() time.Duration {
	return time.Duration(c.CrawlIntervalSeconds) * time.Second
}

// SentTTL returns how long sent-ad markers live; zero keeps them until the
// cache backend evicts them.
func (c *Config) SentTTL() time.Duration {
	return time.Duration(c.SentTTLHours) * time.Hour
}
