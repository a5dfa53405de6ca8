package analysis

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		CommissionRate: 0.12,
		Strategy: domain.StrategyPolicy{
			MinProfitPct: 10,
			MaxProfitPct: 200,
			MinQuantity:  5,
		},
		Risk: domain.RiskPolicy{
			MaxInvestmentPerItem: 50,
			MaxTotalInvestment:   500,
			MaxItemsPerDay:       20,
		},
	}
}

func bothSidesRow(name string, buy float64, count int, suggested float64) domain.MergedRow {
	return domain.MergedRow{
		Name: name,
		A:    &domain.SideA{MinPrice: buy, MedianPrice: buy, ListingCount: count},
		B:    &domain.SideB{MinPrice: suggested, SuggestedPrice: suggested, Quantity: count},
	}
}

func TestAnalyzeProfitMath(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, totals := a.Analyze([]domain.MergedRow{
		bothSidesRow("item", 2.00, 10, 3.00),
	})
	require.Len(t, opps, 1)

	o := opps[0]
	assert.InDelta(t, 2.64, o.NetSellPrice, 1e-9)
	assert.InDelta(t, 0.36, o.Commission, 1e-9)
	assert.InDelta(t, 1.00, o.GrossProfit, 1e-9)
	assert.InDelta(t, 0.64, o.NetProfit, 1e-9)
	assert.InDelta(t, 32.0, o.ProfitPct, 1e-9)
	assert.Equal(t, 10, o.ListingCount)
	assert.Equal(t, 2.00, o.Investment)

	assert.Equal(t, 1, totals.Count)
	assert.InDelta(t, 0.64, totals.NetProfit, 1e-9)
	assert.InDelta(t, 2.00, totals.Investment, 1e-9)
	assert.InDelta(t, 32.0, totals.ROIPct, 1e-9)
}

func TestAnalyzeSkipsOneSidedRows(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, totals := a.Analyze([]domain.MergedRow{
		{Name: "a-only", A: &domain.SideA{MinPrice: 1, ListingCount: 10}},
		{Name: "b-only", B: &domain.SideB{SuggestedPrice: 5}},
	})
	assert.Empty(t, opps)
	assert.Equal(t, 0, totals.Count)
	assert.Equal(t, 0.0, totals.ROIPct)
}

func TestAnalyzeProfitBounds(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, _ := a.Analyze([]domain.MergedRow{
		// 5.28 net on 5.00 buy = 5.6%, below the 10% floor.
		bothSidesRow("too-low", 5.00, 10, 6.00),
		// 8.80 net on 2.00 buy = 340%, above the 200% ceiling (scam zone).
		bothSidesRow("too-high", 2.00, 10, 10.00),
		// 4.40 net on 4.00 buy = 10%, inclusive at the floor.
		bothSidesRow("at-floor", 4.00, 10, 5.00),
	})
	require.Len(t, opps, 1)
	assert.Equal(t, "at-floor", opps[0].Name)
}

func TestAnalyzeLiquidityAndPerItemGates(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, _ := a.Analyze([]domain.MergedRow{
		bothSidesRow("thin", 2.00, 4, 3.00),       // below min quantity 5
		bothSidesRow("expensive", 60.00, 10, 90.00), // above per-item cap 50
		bothSidesRow("ok", 2.00, 5, 3.00),
	})
	require.Len(t, opps, 1)
	assert.Equal(t, "ok", opps[0].Name)
}

func TestAnalyzeRanksByProfitPctDescending(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, _ := a.Analyze([]domain.MergedRow{
		bothSidesRow("mid", 2.00, 10, 3.00),   // 32%
		bothSidesRow("best", 1.00, 10, 2.00),  // 76%
		bothSidesRow("worst", 4.00, 10, 5.00), // 10%
	})
	require.Len(t, opps, 3)
	assert.Equal(t, "best", opps[0].Name)
	assert.Equal(t, "mid", opps[1].Name)
	assert.Equal(t, "worst", opps[2].Name)
}

func TestAnalyzeTruncatesToDailyCap(t *testing.T) {
	cfg := defaultAnalyzerConfig()
	cfg.Risk.MaxItemsPerDay = 2
	a := NewAnalyzer(cfg, testLogger())

	opps, _ := a.Analyze([]domain.MergedRow{
		bothSidesRow("one", 2.00, 10, 3.00),
		bothSidesRow("two", 1.00, 10, 2.00),
		bothSidesRow("three", 4.00, 10, 5.00),
	})
	require.Len(t, opps, 2)
	assert.Equal(t, "two", opps[0].Name)
	assert.Equal(t, "one", opps[1].Name)
}

func TestAnalyzeRescalesInvestmentToBudget(t *testing.T) {
	cfg := defaultAnalyzerConfig()
	cfg.Risk.MaxTotalInvestment = 300
	a := NewAnalyzer(cfg, testLogger())

	rows := make([]domain.MergedRow, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, bothSidesRow(itemName(i), 50.00, 10, 70.00))
	}

	opps, totals := a.Analyze(rows)
	require.Len(t, opps, 10)

	for _, o := range opps {
		assert.InDelta(t, 30.0, o.Investment, 1e-9)
		// Profit still describes a full-size position by default.
		assert.InDelta(t, 11.6, o.NetProfit, 1e-9)
	}
	assert.InDelta(t, 300.0, totals.Investment, 1e-9)
}

func TestAnalyzeRescaleProfitFlag(t *testing.T) {
	cfg := defaultAnalyzerConfig()
	cfg.Risk.MaxTotalInvestment = 300
	cfg.RescaleProfit = true
	a := NewAnalyzer(cfg, testLogger())

	rows := make([]domain.MergedRow, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, bothSidesRow(itemName(i), 50.00, 10, 70.00))
	}

	opps, totals := a.Analyze(rows)
	require.Len(t, opps, 10)

	for _, o := range opps {
		assert.InDelta(t, 30.0, o.Investment, 1e-9)
		assert.InDelta(t, 11.6*0.6, o.NetProfit, 1e-9)
	}
	// ROI is identical either way; both sides of the ratio scale together.
	assert.InDelta(t, 11.6/50.0*100, totals.ROIPct, 1e-9)
}

func TestAnalyzeSkipsNonPositivePrices(t *testing.T) {
	a := NewAnalyzer(defaultAnalyzerConfig(), testLogger())

	opps, _ := a.Analyze([]domain.MergedRow{
		bothSidesRow("free", 0, 10, 3.00),
		bothSidesRow("no-baseline", 2.00, 10, 0),
	})
	assert.Empty(t, opps)
}

func itemName(i int) string {
	return string(rune('a' + i))
}
