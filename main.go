package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"tharindu/ikmanwatcher/config"
	"tharindu/ikmanwatcher/internal/crawler"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/services/cache"
	"tharindu/ikmanwatcher/services/publisher"
	"tharindu/ikmanwatcher/services/telegram"
	"tharindu/ikmanwatcher/services/tracker"
	"tharindu/ikmanwatcher/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("url", cfg.IkmanURL).
		Int("start_page", cfg.StartPage).
		Int("pages", cfg.Pages).
		Dur("crawl_interval", cfg.CrawlInterval()).
		Msg("Starting ikman watcher")

	// Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	fetcher := crawler.NewHTTPPageFetcher(
		&http.Client{Timeout: cfg.FetchTimeout()},
		"Ikman",
		services.Cache,
		cfg.FetchBlock(),
	)

	ikman := crawler.NewIkmanCrawler(crawler.IkmanConfig{
		URL:       cfg.IkmanURL,
		StartPage: cfg.StartPage,
		Pages:     cfg.Pages,
		PriceMax:  cfg.PriceMax,
		SendLimit: cfg.SendLimit,
	}, fetcher)

	notifier := telegram.NewClient(telegram.Config{
		BotToken:      cfg.TelegramBotToken,
		ChatID:        cfg.TelegramChatID,
		MaxImages:     cfg.MaxImages,
		RatePerMinute: cfg.TelegramRate,
	})

	w := worker.NewWorker(ikman, notifier, services.Tracker, services.Publisher, cfg.CrawlInterval())

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	log.Info().Msg("Shutting down")
}

// Services holds the optional backing services. Cache, Tracker and
// Publisher are nil when their backends are not configured.
type Services struct {
	Cache     cache.CacheService
	Tracker   tracker.Tracker
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices wires the services that have backends configured.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		services.Tracker = tracker.NewCacheTracker(services.Cache, cfg.SentTTL())
		logger.Info("Using Memcache at %s for sent-ad tracking", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLen,
		)
		logger.Info("Publishing delivered ads to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services
}
