package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/skinarb/internal/analysis"
	"github.com/alanyoungcy/skinarb/internal/domain"
)

// FeedSource supplies the market feed the deal finder scans: either the
// latest cached feed from a scan cycle or an external CSV export.
type FeedSource interface {
	Feed(ctx context.Context) (rows []domain.FeedRow, updatedAt time.Time, err error)
}

// DealExporter writes flagged deals to an external format.
type DealExporter interface {
	ExportDeals(deals []domain.DealCandidate) (path string, err error)
}

// DealRunner owns the deal-finder loop. It is independent of the scan
// pipeline and never touches the source APIs.
type DealRunner struct {
	source     FeedSource
	finder     *analysis.DealFinder
	interval   time.Duration
	maxFeedAge time.Duration
	logger     *slog.Logger

	store    domain.DealStore
	exporter DealExporter
	notifier Notifier
}

// NewDealRunner creates a DealRunner. maxFeedAge <= 0 disables the staleness
// check.
func NewDealRunner(source FeedSource, finder *analysis.DealFinder, interval, maxFeedAge time.Duration, logger *slog.Logger) *DealRunner {
	return &DealRunner{
		source:     source,
		finder:     finder,
		interval:   interval,
		maxFeedAge: maxFeedAge,
		logger:     logger.With(slog.String("component", "deal_runner")),
	}
}

// WithStore attaches a deal store.
func (d *DealRunner) WithStore(s domain.DealStore) *DealRunner { d.store = s; return d }

// WithExporter attaches a deal exporter.
func (d *DealRunner) WithExporter(e DealExporter) *DealRunner { d.exporter = e; return d }

// WithNotifier attaches a notifier.
func (d *DealRunner) WithNotifier(n Notifier) *DealRunner { d.notifier = n; return d }

// Run executes deal scans until ctx is cancelled, spacing scan starts by the
// configured interval.
func (d *DealRunner) Run(ctx context.Context) error {
	d.logger.Info("deal finder starting", slog.Duration("interval", d.interval))

	for {
		start := time.Now()
		if _, err := d.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Info("deal finder stopped")
				return ctx.Err()
			}
			d.logger.Error("deal scan failed", slog.String("error", err.Error()))
		}

		sleep := d.interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("deal finder stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce executes one deal scan. Finding nothing is a normal outcome and
// skips reporting; a missing or stale feed is an error.
func (d *DealRunner) RunOnce(ctx context.Context) ([]domain.DealCandidate, error) {
	rows, updatedAt, err := d.source.Feed(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load feed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("pipeline: %w", domain.ErrEmptyFeed)
	}
	if d.maxFeedAge > 0 && !updatedAt.IsZero() && time.Since(updatedAt) > d.maxFeedAge {
		return nil, fmt.Errorf("pipeline: %w: updated %s ago",
			domain.ErrStaleFeed, time.Since(updatedAt).Round(time.Second))
	}

	deals := d.finder.Find(rows)
	if len(deals) == 0 {
		return deals, nil
	}

	if d.store != nil {
		if err := d.store.SaveDeals(ctx, deals); err != nil {
			d.logger.Warn("deal store save failed", slog.String("error", err.Error()))
		}
	}
	if d.exporter != nil {
		path, err := d.exporter.ExportDeals(deals)
		if err != nil {
			d.logger.Warn("deal export failed", slog.String("error", err.Error()))
		} else {
			d.logger.Info("deals exported", slog.String("path", path))
		}
	}
	if d.notifier != nil {
		if err := d.notifier.Notify(ctx, "deals_found",
			fmt.Sprintf("%d discounted items", len(deals)),
			summarizeDeals(deals),
		); err != nil {
			d.logger.Warn("notify failed", slog.String("error", err.Error()))
		}
	}

	return deals, nil
}

func summarizeDeals(deals []domain.DealCandidate) string {
	const maxLines = 5
	msg := ""
	for i, deal := range deals {
		if i == maxLines {
			msg += fmt.Sprintf("… and %d more", len(deals)-maxLines)
			break
		}
		msg += fmt.Sprintf("%s: %.2f %s (%.1f%% below suggested)\n",
			deal.Name, deal.CurrentPrice, deal.Currency, -deal.DiscountPct)
	}
	return msg
}
