package analysis

import (
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// marketURL is the deep-link template for flagged deals.
const marketURL = "https://skinport.com/market?item="

// DealFinderConfig holds the discount detection thresholds.
type DealFinderConfig struct {
	// DiscountThreshold is negative; a row qualifies when its discount
	// percentage is at or below it (deeper discount = more negative).
	DiscountThreshold float64
	// MinVolume gates on liquidity: the 24h or 7d trade volume must reach it.
	MinVolume float64
	MinPrice  float64
	MaxPrice  float64
}

// DealFinder scans an exported market feed for items priced well below their
// suggested price. It is independent of the arbitrage pipeline and operates
// on the previous cycle's feed, not on raw fetch output.
type DealFinder struct {
	cfg    DealFinderConfig
	logger *slog.Logger
}

// NewDealFinder creates a DealFinder.
func NewDealFinder(cfg DealFinderConfig, logger *slog.Logger) *DealFinder {
	return &DealFinder{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "deal_finder")),
	}
}

// Find returns the qualifying deals sorted by discount percentage ascending,
// deepest discount first. Rows with missing or unparsable numeric fields are
// skipped and logged; they never fail the run.
func (f *DealFinder) Find(feed []domain.FeedRow) []domain.DealCandidate {
	now := time.Now().UTC()
	deals := make([]domain.DealCandidate, 0)
	skipped := 0

	for _, row := range feed {
		if strings.TrimSpace(row.CurrentPrice) == "" {
			continue
		}

		current, err := strconv.ParseFloat(strings.TrimSpace(row.CurrentPrice), 64)
		if err != nil {
			f.logger.Warn("unparsable current price",
				slog.String("item", row.Name),
				slog.String("value", row.CurrentPrice),
			)
			skipped++
			continue
		}
		if current < f.cfg.MinPrice || current > f.cfg.MaxPrice {
			continue
		}

		suggested, err := parseFeedFloat(row.SuggestedPrice)
		if err != nil {
			f.logger.Warn("unparsable suggested price",
				slog.String("item", row.Name),
				slog.String("value", row.SuggestedPrice),
			)
			skipped++
			continue
		}
		if suggested <= 0 {
			// No usable baseline; a discount against zero is meaningless.
			continue
		}

		volume24h, err := parseFeedFloat(row.Volume24h)
		if err != nil {
			f.logger.Warn("unparsable 24h volume",
				slog.String("item", row.Name),
				slog.String("value", row.Volume24h),
			)
			skipped++
			continue
		}
		volume7d, err := parseFeedFloat(row.Volume7d)
		if err != nil {
			f.logger.Warn("unparsable 7d volume",
				slog.String("item", row.Name),
				slog.String("value", row.Volume7d),
			)
			skipped++
			continue
		}

		discountPct := (current - suggested) / suggested * 100

		if current > 0 &&
			discountPct <= f.cfg.DiscountThreshold &&
			(volume24h >= f.cfg.MinVolume || volume7d >= f.cfg.MinVolume) {
			deals = append(deals, domain.DealCandidate{
				ID:             uuid.New(),
				Name:           row.Name,
				CurrentPrice:   current,
				ReferencePrice: suggested,
				DiscountPct:    discountPct,
				Volume24h:      volume24h,
				Volume7d:       volume7d,
				Currency:       currencyOrDefault(row.Currency),
				URL:            DealURL(row.Name),
				DetectedAt:     now,
			})
		}
	}

	sort.Slice(deals, func(i, j int) bool { return deals[i].DiscountPct < deals[j].DiscountPct })

	f.logger.Info("deal scan complete",
		slog.Int("rows", len(feed)),
		slog.Int("deals", len(deals)),
		slog.Int("skipped", skipped),
	)
	return deals
}

// DealURL builds the marketplace deep link for an item name. Encoding matches
// HTML form encoding (spaces become '+'), which the market page expects.
func DealURL(name string) string {
	return marketURL + url.QueryEscape(name)
}

// parseFeedFloat parses a raw feed value. An empty value is a legitimately
// absent column and parses to zero; a non-empty malformed value is an error
// and disqualifies the whole row.
func parseFeedFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "EUR"
	}
	return currency
}
