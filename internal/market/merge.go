// Package market reconciles the two marketplace payloads into a single
// comparison table, one row per item.
package market

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// Merge joins the Lis-Skins listings against the Skinport items on the
// whitespace-trimmed item name.
//
// Lis-Skins rows are grouped per name into min price, median price, and
// listing count; Skinport already carries one row per name. The join is a
// full outer join: items known to only one market still produce a row, with
// the other side nil. Merge does no filtering; every row passes through to
// the analyzer.
//
// Rows come back sorted by name so repeated merges of the same payloads are
// byte-for-byte identical.
func Merge(listings []domain.Listing, items []domain.ReferenceItem) []domain.MergedRow {
	aSide := groupListings(listings)
	bSide := make(map[string]*domain.SideB, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		// Duplicate names in the Skinport payload should not happen; last
		// one wins, matching a plain keyed overwrite.
		bSide[name] = &domain.SideB{
			MinPrice:       it.MinPrice,
			SuggestedPrice: it.SuggestedPrice,
			Quantity:       it.Quantity,
		}
	}

	names := make(map[string]struct{}, len(aSide)+len(bSide))
	for name := range aSide {
		names[name] = struct{}{}
	}
	for name := range bSide {
		names[name] = struct{}{}
	}

	rows := make([]domain.MergedRow, 0, len(names))
	for name := range names {
		rows = append(rows, domain.MergedRow{
			Name: name,
			A:    aSide[name],
			B:    bSide[name],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// groupListings aggregates listings per trimmed name.
func groupListings(listings []domain.Listing) map[string]*domain.SideA {
	prices := make(map[string][]float64)
	for _, l := range listings {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		prices[name] = append(prices[name], l.Price)
	}

	out := make(map[string]*domain.SideA, len(prices))
	for name, ps := range prices {
		sort.Float64s(ps)
		out[name] = &domain.SideA{
			MinPrice:     ps[0],
			MedianPrice:  median(ps),
			ListingCount: len(ps),
		}
	}
	return out
}

// median of a sorted, non-empty slice: middle element for odd lengths, mean
// of the two middle elements for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
