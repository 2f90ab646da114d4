package crawler

import (
	goerrors "errors"

	"tharindu/ikmanwatcher/helpers"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/pkg/errors"
)

// DefaultSearchURL is the houses-for-sale search the watcher follows when no
// other URL is configured.
const DefaultSearchURL = "https://ikman.lk/en/ads/sri-lanka/houses-for-sale"

const ikmanProvider = "Ikman"

// IkmanConfig narrows one crawl run: the search URL, the page window and the
// delivery filters. Nil filter fields disable the corresponding stage.
type IkmanConfig struct {
	URL       string
	StartPage int
	Pages     int
	PriceMax  *int64
	SendLimit *int
}

// IkmanCrawler crawls house listings from ikman.lk search pages.
type IkmanCrawler struct {
	IkmanConfig
	fetcher PageFetcher
	log     *logger.Logger
}

// NewIkmanCrawler creates a new ikman.lk crawler
func NewIkmanCrawler(cfg IkmanConfig, fetcher PageFetcher) *IkmanCrawler {
	if cfg.URL == "" {
		cfg.URL = DefaultSearchURL
	}
	if cfg.StartPage < 1 {
		cfg.StartPage = 1
	}
	if cfg.Pages < 1 {
		cfg.Pages = 1
	}
	return &IkmanCrawler{
		IkmanConfig: cfg,
		fetcher:     fetcher,
		log:         logger.ForCrawler(ikmanProvider),
	}
}

// GetName returns the crawler name
func (c *IkmanCrawler) GetName() string {
	return "IkmanCrawler"
}

// GetProvider returns the provider name
func (c *IkmanCrawler) GetProvider() string {
	return ikmanProvider
}

// FetchAds crawls the configured page window and returns the ads ready for
// delivery: accumulated in page order, de-duplicated by site id, filtered by
// the price ceiling, truncated to the send limit. Any page failing to fetch
// or parse fails the whole run.
func (c *IkmanCrawler) FetchAds() ([]Ad, error) {
	ads := make([]Ad, 0)
	seen := make(map[string]struct{})

	c.log.Info().
		Str("url", c.URL).
		Int("start_page", c.StartPage).
		Int("pages", c.Pages).
		Msg("fetching ads")

	for page := c.StartPage; page < c.StartPage+c.Pages; page++ {
		pageAds, err := c.fetchPage(page)
		if err != nil {
			return nil, err
		}
		for _, ad := range pageAds {
			if _, dup := seen[ad.ID]; dup {
				continue
			}
			seen[ad.ID] = struct{}{}
			ads = append(ads, ad)
		}
	}

	c.log.Info().Int("unique", len(ads)).Msg("accumulated ads")

	if c.PriceMax != nil {
		before := len(ads)
		ads = filterByPriceMax(ads, *c.PriceMax)
		c.log.Info().
			Int64("price_max", *c.PriceMax).
			Int("kept", len(ads)).
			Int("before", before).
			Msg("applied price filter")
	}

	if c.SendLimit != nil && *c.SendLimit >= 0 && len(ads) > *c.SendLimit {
		ads = ads[:*c.SendLimit]
	}

	return ads, nil
}

// fetchPage fetches one search page and maps its records.
func (c *IkmanCrawler) fetchPage(page int) ([]Ad, error) {
	url, err := pageURL(c.URL, page)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, ikmanProvider, "invalid search url", err)
	}

	c.log.Debug().Int("page", page).Str("url", url).Msg("fetching page")

	html, err := c.fetcher.Fetch(url)
	if err != nil {
		if goerrors.Is(err, helpers.ErrRateLimited) {
			return nil, errors.NewRateLimit(ikmanProvider, page, "fetch rate limited", err)
		}
		return nil, errors.NewNetwork(ikmanProvider, page, "page fetch failed", err)
	}

	data, err := extractInitialData(html)
	if err != nil {
		return nil, errors.NewParsing(ikmanProvider, page, "embedded listing data not found", err)
	}

	raws, err := adsFromInitialData(data)
	if err != nil {
		return nil, errors.NewParsing(ikmanProvider, page, "listing data has unexpected shape", err)
	}

	if meta := metaFromInitialData(data); meta.Total > 0 {
		c.log.Debug().Int("page", page).Int("total", meta.Total).Msg("search metadata")
	}

	ads := make([]Ad, 0, len(raws))
	for _, raw := range raws {
		ad, ok := mapAd(raw)
		if !ok {
			c.log.Warn().
				Int("page", page).
				Str("slug", asString(raw["slug"])).
				Msg("skipping record without id")
			continue
		}
		ads = append(ads, ad)
	}

	c.log.Info().Int("page", page).Int("ads", len(ads)).Msg("fetched page")
	return ads, nil
}

// filterByPriceMax drops ads whose numeric price is unknown or above max.
// An unpriced ad cannot be shown to satisfy the ceiling, so it is excluded.
func filterByPriceMax(ads []Ad, max int64) []Ad {
	filtered := make([]Ad, 0, len(ads))
	for _, ad := range ads {
		if amount, ok := ad.PriceAmount(); ok && amount <= max {
			filtered = append(filtered, ad)
		}
	}
	return filtered
}
