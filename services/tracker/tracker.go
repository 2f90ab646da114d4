package tracker

import (
	"errors"
	"time"

	"tharindu/ikmanwatcher/internal/crawler"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/services/cache"
)

const keyPrefix = "sent_ad_"

// Tracker remembers which ads were already delivered so repeat runs do not
// resend them. Tracking is advisory: when the backing store is unreachable
// the watcher keeps sending rather than going silent.
type Tracker interface {
	// FilterUnsent returns the ads not yet marked as sent, preserving order.
	FilterUnsent(ads []crawler.Ad) []crawler.Ad

	// MarkSent records one delivered ad.
	MarkSent(ad crawler.Ad) error
}

// CacheTracker keeps sent ad ids in a cache service.
type CacheTracker struct {
	cacheSvc cache.CacheService
	ttl      time.Duration
	log      *logger.Logger
}

var _ Tracker = (*CacheTracker)(nil)

// NewCacheTracker creates a tracker on top of cacheSvc. A zero ttl keeps
// sent markers until the backend evicts them.
func NewCacheTracker(cacheSvc cache.CacheService, ttl time.Duration) *CacheTracker {
	return &CacheTracker{
		cacheSvc: cacheSvc,
		ttl:      ttl,
		log:      logger.ForTracker(),
	}
}

// Seen reports whether the ad id has a sent marker.
func (t *CacheTracker) Seen(id string) bool {
	_, err := t.cacheSvc.Get(keyPrefix + id)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		t.log.Debug().Err(err).Str("ad_id", id).Msg("sent check failed, treating as unsent")
	}
	return false
}

// FilterUnsent returns the ads without a sent marker, preserving order.
func (t *CacheTracker) FilterUnsent(ads []crawler.Ad) []crawler.Ad {
	unsent := make([]crawler.Ad, 0, len(ads))
	for _, ad := range ads {
		if !t.Seen(ad.ID) {
			unsent = append(unsent, ad)
		}
	}
	if dropped := len(ads) - len(unsent); dropped > 0 {
		t.log.Info().Int("already_sent", dropped).Int("unsent", len(unsent)).Msg("filtered previously sent ads")
	}
	return unsent
}

// MarkSent records a sent marker holding the delivery time.
func (t *CacheTracker) MarkSent(ad crawler.Ad) error {
	return t.cacheSvc.Set(keyPrefix+ad.ID, []byte(time.Now().Format(time.RFC3339)), t.ttl)
}

// NoopTracker treats every ad as unsent and remembers nothing. It stands in
// when no cache backend is configured.
type NoopTracker struct{}

var _ Tracker = NoopTracker{}

func (NoopTracker) FilterUnsent(ads []crawler.Ad) []crawler.Ad { return ads }

func (NoopTracker) MarkSent(crawler.Ad) error { return nil }
