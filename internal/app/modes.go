package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/skinarb/internal/analysis"
	"github.com/alanyoungcy/skinarb/internal/domain"
	"github.com/alanyoungcy/skinarb/internal/export"
	"github.com/alanyoungcy/skinarb/internal/pipeline"
	"github.com/alanyoungcy/skinarb/internal/platform/lisskins"
	"github.com/alanyoungcy/skinarb/internal/platform/skinport"
)

// buildRunner assembles the scan pipeline from the wired dependencies.
func (a *App) buildRunner(deps *Dependencies) *pipeline.Runner {
	lis := lisskins.NewClient(a.cfg.LisSkins.BaseURL, deps.RateLimiter, a.logger)
	sp := skinport.NewClient(a.cfg.Skinport.BaseURL, skinport.Params{
		AppID:    a.cfg.Skinport.AppID,
		Currency: a.cfg.Skinport.Currency,
		Tradable: a.cfg.Skinport.Tradable,
	}, deps.RateLimiter, a.logger)

	if deps.Snapshots != nil {
		lis.SetSnapshotStore(deps.Snapshots)
		sp.SetSnapshotStore(deps.Snapshots)
	}

	fetcher := pipeline.NewFetcher(a.cfg.Scanner.PerCallTimeout.Duration, a.logger, lis, sp)

	analyzer := analysis.NewAnalyzer(analysis.AnalyzerConfig{
		CommissionRate: a.cfg.Skinport.CommissionRate,
		Strategy: domain.StrategyPolicy{
			MinProfitPct: a.cfg.Strategy.MinProfitPct,
			MaxProfitPct: a.cfg.Strategy.MaxProfitPct,
			MinQuantity:  a.cfg.Strategy.MinQuantity,
		},
		Risk: domain.RiskPolicy{
			MaxInvestmentPerItem: a.cfg.Risk.MaxInvestmentPerItem,
			MaxTotalInvestment:   a.cfg.Risk.MaxTotalInvestment,
			MaxItemsPerDay:       a.cfg.Risk.MaxItemsPerDay,
		},
		RescaleProfit: a.cfg.Scanner.RescaleProfit,
	}, a.logger)

	runner := pipeline.NewRunner(fetcher, analyzer, a.cfg.Scanner.Interval.Duration, a.logger)
	if deps.OpportunityStore != nil {
		runner = runner.WithStore(deps.OpportunityStore)
	}
	if deps.FeedCache != nil {
		runner = runner.WithFeedCache(deps.FeedCache)
	}
	if deps.Exporter != nil {
		runner = runner.WithExporter(deps.Exporter)
	}
	runner = runner.WithNotifier(deps.Notifier)
	return runner
}

// buildDealRunner assembles the deal-finder pipeline. The feed comes from the
// configured CSV file when one is set, otherwise from the Redis feed cache.
func (a *App) buildDealRunner(deps *Dependencies) (*pipeline.DealRunner, error) {
	var source pipeline.FeedSource
	switch {
	case a.cfg.Deals.FeedPath != "":
		source = export.NewFileFeedSource(a.cfg.Deals.FeedPath)
	case deps.FeedCache != nil:
		source = deps.FeedCache
	default:
		return nil, fmt.Errorf("app: deal finder needs a feed path or redis")
	}

	finder := analysis.NewDealFinder(analysis.DealFinderConfig{
		DiscountThreshold: a.cfg.Deals.DiscountThreshold,
		MinVolume:         a.cfg.Deals.MinVolume,
		MinPrice:          a.cfg.Deals.MinPrice,
		MaxPrice:          a.cfg.Deals.MaxPrice,
	}, a.logger)

	runner := pipeline.NewDealRunner(source, finder,
		a.cfg.Deals.Interval.Duration, a.cfg.Deals.MaxFeedAge.Duration, a.logger)
	if deps.DealStore != nil {
		runner = runner.WithStore(deps.DealStore)
	}
	if deps.Exporter != nil {
		runner = runner.WithExporter(deps.Exporter)
	}
	runner = runner.WithNotifier(deps.Notifier)
	return runner, nil
}

// withRetention runs the primary loop, adding the retention sweeper when one
// is wired. Either loop failing takes the other down.
func withRetention(ctx context.Context, deps *Dependencies, primary func(context.Context) error) error {
	if deps.Retention == nil {
		return primary(ctx)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return primary(ctx) })
	g.Go(func() error { return deps.Retention.Run(ctx) })
	return g.Wait()
}

// ScanMode runs the fetch-merge-analyze loop until shutdown.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	return withRetention(ctx, deps, a.buildRunner(deps).Run)
}

// DealsMode runs the discount deal finder loop until shutdown.
func (a *App) DealsMode(ctx context.Context, deps *Dependencies) error {
	runner, err := a.buildDealRunner(deps)
	if err != nil {
		return err
	}
	return withRetention(ctx, deps, runner.Run)
}

// OnceMode executes a single scan cycle and exits. Useful for cron-style
// deployments and smoke checks.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	run, err := a.buildRunner(deps).RunCycle(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("single cycle finished",
		slog.Int("opportunities", run.Totals.Count),
		slog.Float64("net_profit", run.Totals.NetProfit),
		slog.Float64("investment", run.Totals.Investment),
	)
	return nil
}

// FullMode runs the scanner and the deal finder concurrently. The first loop
// to fail takes the whole process down.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	dealRunner, err := a.buildDealRunner(deps)
	if err != nil {
		return err
	}
	scanRunner := a.buildRunner(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scanRunner.Run(ctx) })
	g.Go(func() error { return dealRunner.Run(ctx) })
	if deps.Retention != nil {
		g.Go(func() error { return deps.Retention.Run(ctx) })
	}
	return g.Wait()
}

// reportLimit caps how much stored history report mode prints per store.
const reportLimit = 20

// ReportMode prints the most recently stored opportunities and deals and
// exits. Requires Postgres.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	if deps.OpportunityStore == nil || deps.DealStore == nil {
		return fmt.Errorf("app: report mode needs postgres")
	}

	opps, err := deps.OpportunityStore.ListRecent(ctx, reportLimit)
	if err != nil {
		return fmt.Errorf("app: report opportunities: %w", err)
	}
	for _, opp := range opps {
		a.logger.Info("opportunity",
			slog.String("item", opp.Name),
			slog.Float64("buy", opp.BuyPrice),
			slog.Float64("net_sell", opp.NetSellPrice),
			slog.Float64("profit_pct", opp.ProfitPct),
			slog.Time("detected_at", opp.DetectedAt),
		)
	}

	deals, err := deps.DealStore.ListRecent(ctx, reportLimit)
	if err != nil {
		return fmt.Errorf("app: report deals: %w", err)
	}
	for _, d := range deals {
		a.logger.Info("deal",
			slog.String("item", d.Name),
			slog.Float64("price", d.CurrentPrice),
			slog.Float64("discount_pct", d.DiscountPct),
			slog.String("url", d.URL),
			slog.Time("detected_at", d.DetectedAt),
		)
	}

	a.logger.Info("report complete",
		slog.Int("opportunities", len(opps)),
		slog.Int("deals", len(deals)),
	)
	return nil
}
