package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Archiver copies cold history to object storage before it is pruned.
// Satisfied by the S3 archiver.
type Archiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
	ArchiveDeals(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityPruner deletes opportunities older than a cutoff.
type OpportunityPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// DealPruner deletes deals older than a cutoff.
type DealPruner interface {
	DeleteDealsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Retention periodically archives and prunes scan history older than the
// configured age. Archival runs before deletion; when an archive step fails
// the sweep stops and nothing is deleted, so history is never lost.
type Retention struct {
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger

	archiver Archiver
	opps     OpportunityPruner
	deals    DealPruner
}

// NewRetention creates a Retention sweeper. Stores and the archiver are
// attached with the With* setters; absent collaborators are skipped.
func NewRetention(maxAge, interval time.Duration, logger *slog.Logger) *Retention {
	return &Retention{
		maxAge:   maxAge,
		interval: interval,
		logger:   logger.With(slog.String("component", "retention")),
	}
}

// WithArchiver attaches the cold-storage archiver.
func (r *Retention) WithArchiver(a Archiver) *Retention { r.archiver = a; return r }

// WithOpportunityStore attaches the opportunity pruner.
func (r *Retention) WithOpportunityStore(s OpportunityPruner) *Retention { r.opps = s; return r }

// WithDealStore attaches the deal pruner.
func (r *Retention) WithDealStore(s DealPruner) *Retention { r.deals = s; return r }

// Run executes sweeps until ctx is cancelled. The first sweep runs
// immediately; a failed sweep is logged and retried on the next tick.
func (r *Retention) Run(ctx context.Context) error {
	r.logger.Info("retention starting",
		slog.Duration("max_age", r.maxAge),
		slog.Duration("interval", r.interval),
	)

	for {
		if err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("retention stopped")
				return ctx.Err()
			}
			r.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}

		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("retention stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce performs one archive-then-prune sweep against the cutoff
// now - maxAge.
func (r *Retention) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.maxAge)

	if r.archiver != nil {
		archivedOpps, err := r.archiver.ArchiveOpportunities(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: retention archive opportunities: %w", err)
		}
		archivedDeals, err := r.archiver.ArchiveDeals(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: retention archive deals: %w", err)
		}
		if archivedOpps+archivedDeals > 0 {
			r.logger.Info("history archived",
				slog.Int64("opportunities", archivedOpps),
				slog.Int64("deals", archivedDeals),
			)
		}
	}

	var prunedOpps, prunedDeals int64
	if r.opps != nil {
		n, err := r.opps.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: retention prune opportunities: %w", err)
		}
		prunedOpps = n
	}
	if r.deals != nil {
		n, err := r.deals.DeleteDealsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: retention prune deals: %w", err)
		}
		prunedDeals = n
	}

	if prunedOpps+prunedDeals > 0 {
		r.logger.Info("history pruned",
			slog.Time("cutoff", cutoff),
			slog.Int64("opportunities", prunedOpps),
			slog.Int64("deals", prunedDeals),
		)
	}
	return nil
}
