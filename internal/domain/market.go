// Package domain defines the core types shared across the scanner: market
// payloads, merged comparison rows, policies, opportunities, and the
// interfaces implemented by the cache, store, and blob adapters.
package domain

import "time"

// Source identifies one of the upstream marketplaces.
type Source string

const (
	// SourceLisSkins is the buy side: a bulk JSON export of every active
	// listing, many rows per item.
	SourceLisSkins Source = "lisskins"
	// SourceSkinport is the sell side: one row per item with the current
	// minimum and suggested price.
	SourceSkinport Source = "skinport"
)

// Listing is a single Lis-Skins listing. The same item name appears once per
// active offer.
type Listing struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ReferenceItem is a single Skinport item record: current market state for
// one item.
type ReferenceItem struct {
	Name           string  `json:"market_hash_name"`
	MinPrice       float64 `json:"min_price"`
	SuggestedPrice float64 `json:"suggested_price"`
	Quantity       int     `json:"quantity"`
	Currency       string  `json:"currency"`
}

// MarketSnapshot is the parsed result of one fetch from one source. Exactly
// one of Listings/Items is populated depending on the source. ServerTime is
// the upstream data timestamp when the API reports one (Lis-Skins
// last_update); zero otherwise.
type MarketSnapshot struct {
	Source     Source
	Listings   []Listing
	Items      []ReferenceItem
	ServerTime time.Time
	FetchedAt  time.Time
}

// Empty reports whether the snapshot carries no rows at all.
func (s MarketSnapshot) Empty() bool {
	return len(s.Listings) == 0 && len(s.Items) == 0
}

// SideA holds the Lis-Skins aggregate for one item: per-name group stats over
// all of its listings.
type SideA struct {
	MinPrice     float64
	MedianPrice  float64
	ListingCount int
}

// SideB holds the Skinport columns selected for comparison.
type SideB struct {
	MinPrice       float64
	SuggestedPrice float64
	Quantity       int
}

// MergedRow is one row of the cross-market comparison table, keyed by the
// whitespace-trimmed item name. The join is a full outer join, so either side
// may be absent; a nil side means the item was not found in that market.
// Derived metrics are exposed as (value, ok) methods rather than stored
// fields so "undefined when one side is missing" is visible at the call site.
type MergedRow struct {
	Name string
	A    *SideA
	B    *SideB
}

// Both reports whether the item was present in both markets.
func (r MergedRow) Both() bool {
	return r.A != nil && r.B != nil
}

// PriceDiff returns Skinport min price minus Lis-Skins min price. ok is false
// when either side is missing.
func (r MergedRow) PriceDiff() (diff float64, ok bool) {
	if !r.Both() {
		return 0, false
	}
	return r.B.MinPrice - r.A.MinPrice, true
}

// PriceRatio returns Skinport min price divided by Lis-Skins min price. ok is
// false when either side is missing or the Lis-Skins price is zero.
func (r MergedRow) PriceRatio() (ratio float64, ok bool) {
	if !r.Both() || r.A.MinPrice == 0 {
		return 0, false
	}
	return r.B.MinPrice / r.A.MinPrice, true
}

// FeedRow is one record of the exported market feed consumed by the deal
// finder. Values are kept as raw strings because the feed comes from external
// exports (CSV or cached JSON) with occasionally malformed numerics; the
// finder parses and skips bad rows instead of failing the run.
type FeedRow struct {
	Name           string `json:"market_hash_name"`
	CurrentPrice   string `json:"current_min_price"`
	SuggestedPrice string `json:"suggested_price"`
	Volume24h      string `json:"volume_24h"`
	Volume7d       string `json:"volume_7d"`
	Currency       string `json:"currency"`
}
