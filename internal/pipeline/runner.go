package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/skinarb/internal/analysis"
	"github.com/alanyoungcy/skinarb/internal/domain"
	"github.com/alanyoungcy/skinarb/internal/market"
)

// Notifier delivers event-filtered notifications. Satisfied by
// notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// RunExporter writes an analysis run to an external format and returns where
// it landed.
type RunExporter interface {
	ExportRun(run domain.OpportunityRun) (path string, err error)
}

// Runner owns the scan loop. Each cycle walks fetching → merging → analyzing
// → reporting; any failure before reporting logs the reason and sends the
// cycle straight to sleep. Nothing carries over between cycles and no error
// short of startup misconfiguration stops the loop.
type Runner struct {
	fetcher  *Fetcher
	analyzer *analysis.Analyzer
	interval time.Duration
	logger   *slog.Logger

	// Optional downstream collaborators; any of them may be nil.
	store    domain.OpportunityStore
	feed     domain.FeedCache
	exporter RunExporter
	notifier Notifier
}

// NewRunner creates a Runner. Downstream collaborators are attached with the
// With* setters.
func NewRunner(fetcher *Fetcher, analyzer *analysis.Analyzer, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		fetcher:  fetcher,
		analyzer: analyzer,
		interval: interval,
		logger:   logger.With(slog.String("component", "runner")),
	}
}

// WithStore attaches an opportunity store.
func (r *Runner) WithStore(s domain.OpportunityStore) *Runner { r.store = s; return r }

// WithFeedCache attaches a feed cache; each successful merge publishes the
// Skinport side as the latest feed for the deal finder.
func (r *Runner) WithFeedCache(c domain.FeedCache) *Runner { r.feed = c; return r }

// WithExporter attaches a run exporter.
func (r *Runner) WithExporter(e RunExporter) *Runner { r.exporter = e; return r }

// WithNotifier attaches a notifier.
func (r *Runner) WithNotifier(n Notifier) *Runner { r.notifier = n; return r }

// Run executes scan cycles until ctx is cancelled. Cycle starts are spaced by
// the configured interval: after each cycle the runner sleeps for
// max(0, interval-elapsed), so cycles never overlap and a slow cycle starts
// the next one immediately.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scanner starting", slog.Duration("interval", r.interval))

	for {
		start := time.Now()
		if _, err := r.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("scanner stopped")
				return ctx.Err()
			}
			r.logger.Error("scan cycle failed", slog.String("error", err.Error()))
			r.notifyEvent(ctx, "cycle_failed", "Scan cycle failed", err.Error())
		}

		sleep := r.interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("scanner stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle executes exactly one cycle and returns its run. A cycle that
// aborts before analysis returns a nil run and the reason; a cycle that finds
// nothing returns an empty run and no error.
func (r *Runner) RunCycle(ctx context.Context) (*domain.OpportunityRun, error) {
	cycleID := uuid.New()
	start := time.Now()
	logger := r.logger.With(slog.String("cycle_id", cycleID.String()))

	logger.Info("cycle started", slog.String("state", "fetching"))
	snaps, errs := r.fetcher.FetchAll(ctx)
	if len(errs) > 0 {
		for source, err := range errs {
			logger.Warn("source fetch failed",
				slog.String("source", string(source)),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("pipeline: fetch failed for %d of %d sources", len(errs), len(r.fetcher.sources))
	}

	a := snaps[domain.SourceLisSkins]
	b := snaps[domain.SourceSkinport]

	logger.Info("cycle merging", slog.String("state", "merging"),
		slog.Int("listings", len(a.Listings)),
		slog.Int("items", len(b.Items)),
	)
	rows := market.Merge(a.Listings, b.Items)

	r.publishFeed(ctx, logger, b)

	logger.Info("cycle analyzing", slog.String("state", "analyzing"), slog.Int("rows", len(rows)))
	opps, totals := r.analyzer.Analyze(rows)

	run := &domain.OpportunityRun{
		ID:            cycleID,
		StartedAt:     start.UTC(),
		Opportunities: opps,
		Totals:        totals,
	}

	if len(opps) == 0 {
		// A valid terminal state, not a failure; reporting is skipped.
		logger.Info("cycle complete, no opportunities",
			slog.Duration("took", time.Since(start).Round(time.Millisecond)),
		)
		return run, nil
	}

	logger.Info("cycle reporting", slog.String("state", "reporting"), slog.Int("opportunities", len(opps)))
	r.report(ctx, logger, run)

	logger.Info("cycle complete",
		slog.Int("opportunities", totals.Count),
		slog.Float64("net_profit", totals.NetProfit),
		slog.Float64("investment", totals.Investment),
		slog.Duration("took", time.Since(start).Round(time.Millisecond)),
	)
	return run, nil
}

// report fans the run out to the attached collaborators. Downstream failures
// are logged, never fatal: the run already happened.
func (r *Runner) report(ctx context.Context, logger *slog.Logger, run *domain.OpportunityRun) {
	if r.store != nil {
		if err := r.store.SaveRun(ctx, *run); err != nil {
			logger.Warn("store save failed", slog.String("error", err.Error()))
		}
	}
	if r.exporter != nil {
		path, err := r.exporter.ExportRun(*run)
		if err != nil {
			logger.Warn("export failed", slog.String("error", err.Error()))
		} else {
			logger.Info("run exported", slog.String("path", path))
		}
	}
	r.notifyEvent(ctx, "opportunities_found",
		fmt.Sprintf("%d arbitrage opportunities", run.Totals.Count),
		summarizeRun(run),
	)
}

// publishFeed stores the Skinport side of the cycle as the latest market feed.
func (r *Runner) publishFeed(ctx context.Context, logger *slog.Logger, snap domain.MarketSnapshot) {
	if r.feed == nil {
		return
	}
	rows := feedRows(snap.Items)
	if err := r.feed.PutFeed(ctx, rows, snap.FetchedAt); err != nil {
		logger.Warn("feed publish failed", slog.String("error", err.Error()))
		return
	}
	logger.Debug("feed published", slog.Int("rows", len(rows)))
}

func (r *Runner) notifyEvent(ctx context.Context, event, title, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event, title, message); err != nil {
		r.logger.Warn("notify failed", slog.String("error", err.Error()))
	}
}

// feedRows converts Skinport items into exported feed rows. A zero min price
// means the item currently has no offers and is written as an absent value.
func feedRows(items []domain.ReferenceItem) []domain.FeedRow {
	rows := make([]domain.FeedRow, 0, len(items))
	for _, it := range items {
		row := domain.FeedRow{
			Name:           it.Name,
			SuggestedPrice: formatPrice(it.SuggestedPrice),
			Currency:       it.Currency,
		}
		if it.MinPrice > 0 {
			row.CurrentPrice = formatPrice(it.MinPrice)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// summarizeRun renders the top opportunities for a notification body.
func summarizeRun(run *domain.OpportunityRun) string {
	const maxLines = 5
	msg := ""
	for i, opp := range run.Opportunities {
		if i == maxLines {
			msg += fmt.Sprintf("… and %d more\n", len(run.Opportunities)-maxLines)
			break
		}
		msg += fmt.Sprintf("%s: buy %.2f, net sell %.2f (+%.1f%%)\n",
			opp.Name, opp.BuyPrice, opp.NetSellPrice, opp.ProfitPct)
	}
	msg += fmt.Sprintf("total profit %.2f on %.2f invested (ROI %.1f%%)",
		run.Totals.NetProfit, run.Totals.Investment, run.Totals.ROIPct)
	return msg
}
