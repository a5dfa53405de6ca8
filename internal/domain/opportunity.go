package domain

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity is one qualifying buy-on-Lis-Skins / sell-on-Skinport row.
// Every opportunity is derived from exactly one MergedRow with both sides
// present. After ranking, only Investment may be rescaled (budget cap); the
// profit figures keep describing a full-size position.
type Opportunity struct {
	ID           uuid.UUID
	Name         string
	BuyPrice     float64 // Lis-Skins min price
	SellPrice    float64 // Skinport suggested price, gross
	NetSellPrice float64 // SellPrice after commission
	Commission   float64
	GrossProfit  float64
	NetProfit    float64
	ProfitPct    float64
	ListingCount int
	Investment   float64
	DetectedAt   time.Time
}

// RunTotals summarises one analysis run over the emitted opportunity set.
// Investment is the post-scaling sum and never exceeds the risk budget.
type RunTotals struct {
	Count      int
	NetProfit  float64
	Investment float64
	ROIPct     float64
}

// OpportunityRun bundles the ranked opportunities of one cycle with its
// totals for persistence.
type OpportunityRun struct {
	ID            uuid.UUID
	StartedAt     time.Time
	Opportunities []Opportunity
	Totals        RunTotals
}

// DealCandidate is one row flagged by the discount deal finder: an item whose
// current price sits far enough below the suggested price, with enough recent
// volume to matter.
type DealCandidate struct {
	ID             uuid.UUID
	Name           string
	CurrentPrice   float64
	ReferencePrice float64
	DiscountPct    float64 // negative; more negative = deeper discount
	Volume24h      float64
	Volume7d       float64
	Currency       string
	URL            string
	DetectedAt     time.Time
}
