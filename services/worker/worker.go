package worker

import (
	"context"
	"encoding/json"
	"time"

	"tharindu/ikmanwatcher/internal/crawler"
	"tharindu/ikmanwatcher/logger"
	"tharindu/ikmanwatcher/services/publisher"
	"tharindu/ikmanwatcher/services/telegram"
	"tharindu/ikmanwatcher/services/tracker"
)

// Worker drives one crawl-and-deliver cycle: crawl the search pages, drop
// ads already sent in earlier runs, deliver the rest in order, and record
// what went out. Publisher and tracker are optional collaborators.
type Worker struct {
	crawler   crawler.Crawler
	notifier  telegram.Notifier
	tracker   tracker.Tracker
	publisher publisher.Publisher
	interval  time.Duration
	log       *logger.Logger
}

// NewWorker creates a new worker. pub may be nil when no stream is
// configured; track may be nil to disable sent-ad filtering.
func NewWorker(
	c crawler.Crawler,
	notifier telegram.Notifier,
	track tracker.Tracker,
	pub publisher.Publisher,
	interval time.Duration,
) *Worker {
	if track == nil {
		track = tracker.NoopTracker{}
	}
	return &Worker{
		crawler:   c,
		notifier:  notifier,
		tracker:   track,
		publisher: pub,
		interval:  interval,
		log:       logger.ForWorker(),
	}
}

// RunOnce performs one complete run. A crawl failure aborts before any
// delivery; a delivery failure is logged and the run moves on to the next
// ad, so one bad ad cannot silence the rest.
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()

	ads, err := w.crawler.FetchAds()
	if err != nil {
		w.log.Error().Err(err).Str("crawler", w.crawler.GetName()).Msg("crawl failed")
		return err
	}

	unsent := w.tracker.FilterUnsent(ads)

	sent := 0
	failed := 0
	for _, ad := range unsent {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.notifier.SendAd(ctx, ad); err != nil {
			failed++
			w.log.Error().Err(err).Str("ad_id", ad.ID).Str("title", ad.Title).Msg("delivery failed")
			continue
		}
		sent++
		w.log.Info().Str("ad_id", ad.ID).Str("title", ad.Title).Msg("ad delivered")

		if err := w.tracker.MarkSent(ad); err != nil {
			w.log.Warn().Err(err).Str("ad_id", ad.ID).Msg("failed to mark ad as sent")
		}
		w.publishAd(ad)
	}

	if w.publisher != nil && sent > 0 {
		if err := w.publisher.TrimStream(); err != nil {
			w.log.Warn().Err(err).Msg("stream trimming failed")
		}
	}

	w.log.Info().
		Int("fetched", len(ads)).
		Int("unsent", len(unsent)).
		Int("sent", sent).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")
	return nil
}

// publishAd appends the delivered ad to the outbound stream. Stream
// failures never fail the run.
func (w *Worker) publishAd(ad crawler.Ad) {
	if w.publisher == nil {
		return
	}
	data, err := json.Marshal(ad)
	if err != nil {
		w.log.Warn().Err(err).Str("ad_id", ad.ID).Msg("failed to marshal ad for stream")
		return
	}
	key := "b64_ads:" + w.crawler.GetProvider()
	if err := w.publisher.Publish(key, data); err != nil {
		w.log.Warn().Err(err).Str("ad_id", ad.ID).Msg("failed to publish ad to stream")
	}
}

// Start runs the worker until ctx is cancelled. With a zero interval it
// performs exactly one run and returns its error; otherwise it repeats
// RunOnce on a ticker and run errors only end the loop via cancellation.
func (w *Worker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return w.RunOnce(ctx)
	}

	w.log.Info().Dur("interval", w.interval).Msg("starting watch loop")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("run failed, waiting for next tick")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
