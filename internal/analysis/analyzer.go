// Package analysis scores the merged comparison table: commission-aware
// profitability ranking under strategy and risk limits, plus the standalone
// discount deal finder.
package analysis

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// AnalyzerConfig holds everything one analysis run needs. Policies are
// immutable per run; the caller builds a new config to change them.
type AnalyzerConfig struct {
	// CommissionRate is the fraction of the gross Skinport sale price the
	// marketplace keeps.
	CommissionRate float64
	Strategy       domain.StrategyPolicy
	Risk           domain.RiskPolicy
	// RescaleProfit also scales the profit figures when the total-investment
	// cap shrinks positions. Off, the historical behaviour, leaves profit
	// describing a full-size position.
	RescaleProfit bool
}

// Analyzer turns merged rows into a ranked, budget-capped opportunity list.
type Analyzer struct {
	cfg    AnalyzerConfig
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg AnalyzerConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Analyze scores every row with both market sides present, filters by the
// strategy and risk policies, ranks by profit percentage (descending, stable)
// truncates to the daily item cap, and rescales investments so their sum
// stays within the total budget.
//
// An empty result is not an error: it is the normal outcome of a cycle with
// nothing worth buying.
func (a *Analyzer) Analyze(rows []domain.MergedRow) ([]domain.Opportunity, domain.RunTotals) {
	now := time.Now().UTC()
	opps := make([]domain.Opportunity, 0, 64)

	for _, row := range rows {
		if !row.Both() {
			continue
		}
		buy := row.A.MinPrice
		gross := row.B.SuggestedPrice
		if buy <= 0 || gross <= 0 {
			// No meaningful buy price or sale baseline; the percentages
			// below would be garbage.
			continue
		}

		netSell := gross * (1 - a.cfg.CommissionRate)
		netProfit := netSell - buy
		profitPct := netProfit / buy * 100

		if profitPct < a.cfg.Strategy.MinProfitPct || profitPct > a.cfg.Strategy.MaxProfitPct {
			continue
		}
		if row.A.ListingCount < a.cfg.Strategy.MinQuantity {
			continue
		}
		if buy > a.cfg.Risk.MaxInvestmentPerItem {
			continue
		}

		opps = append(opps, domain.Opportunity{
			ID:           uuid.New(),
			Name:         row.Name,
			BuyPrice:     buy,
			SellPrice:    gross,
			NetSellPrice: netSell,
			Commission:   gross * a.cfg.CommissionRate,
			GrossProfit:  gross - buy,
			NetProfit:    netProfit,
			ProfitPct:    profitPct,
			ListingCount: row.A.ListingCount,
			Investment:   buy,
			DetectedAt:   now,
		})
	}

	// Stable: equal profit percentages keep their merge-table order.
	sort.SliceStable(opps, func(i, j int) bool { return opps[i].ProfitPct > opps[j].ProfitPct })

	if len(opps) > a.cfg.Risk.MaxItemsPerDay {
		opps = opps[:a.cfg.Risk.MaxItemsPerDay]
	}

	total := 0.0
	for i := range opps {
		total += opps[i].Investment
	}
	if total > a.cfg.Risk.MaxTotalInvestment {
		factor := a.cfg.Risk.MaxTotalInvestment / total
		for i := range opps {
			opps[i].Investment *= factor
			if a.cfg.RescaleProfit {
				opps[i].NetProfit *= factor
				opps[i].GrossProfit *= factor
				opps[i].Commission *= factor
			}
		}
		a.logger.Debug("investments scaled to risk budget",
			slog.Float64("factor", factor),
			slog.Float64("budget", a.cfg.Risk.MaxTotalInvestment),
		)
	}

	totals := runTotals(opps)
	a.logger.Info("analysis complete",
		slog.Int("candidates", len(rows)),
		slog.Int("opportunities", totals.Count),
		slog.Float64("net_profit", totals.NetProfit),
		slog.Float64("investment", totals.Investment),
		slog.Float64("roi_pct", totals.ROIPct),
	)
	return opps, totals
}

// runTotals sums the emitted set. ROI is zero when nothing was invested.
func runTotals(opps []domain.Opportunity) domain.RunTotals {
	t := domain.RunTotals{Count: len(opps)}
	for i := range opps {
		t.NetProfit += opps[i].NetProfit
		t.Investment += opps[i].Investment
	}
	if t.Investment > 0 {
		t.ROIPct = t.NetProfit / t.Investment * 100
	}
	return t
}
