package domain

// StrategyPolicy bounds which merged rows qualify as opportunities. Values
// are fixed for the duration of one analysis run.
type StrategyPolicy struct {
	// MinProfitPct and MaxProfitPct bound the net profit percentage. The
	// upper bound filters out rows that are almost certainly stale or
	// mispriced data rather than real edges.
	MinProfitPct float64
	MaxProfitPct float64
	// MinQuantity is the minimum number of Lis-Skins listings; thinner books
	// are too easy to move.
	MinQuantity int
}

// RiskPolicy caps how much capital one cycle may commit.
type RiskPolicy struct {
	MaxInvestmentPerItem float64
	MaxTotalInvestment   float64
	MaxItemsPerDay       int
}
