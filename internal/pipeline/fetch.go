// Package pipeline drives the scan cycle: concurrent source fetches, merge,
// analysis, and reporting, plus the independent deal-finder loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// SourceFetcher is one rate-limited marketplace client.
type SourceFetcher interface {
	Source() domain.Source
	FetchItems(ctx context.Context) (domain.MarketSnapshot, error)
}

// Fetcher runs every source fetch concurrently under a per-call timeout and
// aggregates the outcomes. It never merges partial data: one bad source fails
// the whole round.
type Fetcher struct {
	sources []SourceFetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher over the given sources. timeout bounds each
// individual source call.
func NewFetcher(timeout time.Duration, logger *slog.Logger, sources ...SourceFetcher) *Fetcher {
	return &Fetcher{
		sources: sources,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "fetcher")),
	}
}

// FetchAll fetches every source in parallel. It blocks until each task has
// reached a terminal state: success, error, or per-call timeout. Because the
// clients thread the deadline through the request, a timed-out task unwinds
// promptly instead of being silently abandoned.
//
// The round succeeds only when errs is empty, which requires every source to
// return a non-empty payload. On failure both maps are still populated so
// callers can log exactly which source did what.
func (f *Fetcher) FetchAll(ctx context.Context) (snaps map[domain.Source]domain.MarketSnapshot, errs map[domain.Source]error) {
	type outcome struct {
		source domain.Source
		snap   domain.MarketSnapshot
		err    error
	}

	results := make(chan outcome, len(f.sources))
	var wg sync.WaitGroup

	for _, src := range f.sources {
		wg.Add(1)
		go func(src SourceFetcher) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			start := time.Now()
			snap, err := src.FetchItems(callCtx)
			f.logger.Debug("source fetch finished",
				slog.String("source", string(src.Source())),
				slog.Duration("took", time.Since(start).Round(time.Millisecond)),
				slog.Bool("ok", err == nil),
			)
			results <- outcome{source: src.Source(), snap: snap, err: err}
		}(src)
	}

	wg.Wait()
	close(results)

	snaps = make(map[domain.Source]domain.MarketSnapshot, len(f.sources))
	errs = make(map[domain.Source]error)
	for res := range results {
		if res.err != nil {
			errs[res.source] = res.err
			continue
		}
		if res.snap.Empty() {
			errs[res.source] = domain.NewFetchError(res.source, domain.FetchValidation, errors.New("empty payload"))
			continue
		}
		snaps[res.source] = res.snap
	}
	return snaps, errs
}
