package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

func defaultDealConfig() DealFinderConfig {
	return DealFinderConfig{
		DiscountThreshold: -15,
		MinVolume:         5,
		MinPrice:          0,
		MaxPrice:          10,
	}
}

func feedRow(name, current, suggested, vol24, vol7 string) domain.FeedRow {
	return domain.FeedRow{
		Name:           name,
		CurrentPrice:   current,
		SuggestedPrice: suggested,
		Volume24h:      vol24,
		Volume7d:       vol7,
		Currency:       "EUR",
	}
}

func TestFindFlagsDiscountedItem(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("P250 | Sand Dune (Field-Tested)", "5.00", "6.50", "12", "80"),
	})
	require.Len(t, deals, 1)

	d := deals[0]
	assert.InDelta(t, -23.0769230769, d.DiscountPct, 1e-9)
	assert.Equal(t, 5.00, d.CurrentPrice)
	assert.Equal(t, 6.50, d.ReferencePrice)
	assert.Equal(t, 12.0, d.Volume24h)
	assert.Equal(t, 80.0, d.Volume7d)
	assert.Equal(t, "EUR", d.Currency)
	assert.False(t, d.DetectedAt.IsZero())
}

func TestFindRejectsShallowDiscount(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	// (6.00-6.50)/6.50 = -7.7%, above the -15 threshold.
	deals := f.Find([]domain.FeedRow{
		feedRow("item", "6.00", "6.50", "12", "80"),
	})
	assert.Empty(t, deals)
}

func TestFindVolumeGateEitherWindow(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("quiet", "5.00", "6.50", "0", "2"),      // both below 5
		feedRow("daily", "5.00", "6.50", "6", "0"),      // 24h passes
		feedRow("weekly", "5.00", "6.50", "0", "9"),     // 7d passes
	})
	require.Len(t, deals, 2)
	names := []string{deals[0].Name, deals[1].Name}
	assert.ElementsMatch(t, []string{"daily", "weekly"}, names)
}

func TestFindPriceRange(t *testing.T) {
	cfg := defaultDealConfig()
	cfg.MinPrice = 1
	f := NewDealFinder(cfg, testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("too-cheap", "0.50", "1.00", "10", "10"),
		feedRow("too-dear", "12.00", "20.00", "10", "10"),
		feedRow("in-range", "5.00", "6.50", "10", "10"),
	})
	require.Len(t, deals, 1)
	assert.Equal(t, "in-range", deals[0].Name)
}

func TestFindSortsDeepestDiscountFirst(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("shallow", "8.00", "9.50", "10", "10"), // -15.8%
		feedRow("deep", "4.00", "8.00", "10", "10"),    // -50%
		feedRow("mid", "5.00", "6.50", "10", "10"),     // -23.1%
	})
	require.Len(t, deals, 3)
	assert.Equal(t, "deep", deals[0].Name)
	assert.Equal(t, "mid", deals[1].Name)
	assert.Equal(t, "shallow", deals[2].Name)
}

func TestFindSkipsBadRows(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("no-price", "", "6.50", "10", "10"),
		feedRow("garbage", "n/a", "6.50", "10", "10"),
		feedRow("no-baseline", "5.00", "", "10", "10"),
		feedRow("good", "5.00", "6.50", "10", "10"),
	})
	require.Len(t, deals, 1)
	assert.Equal(t, "good", deals[0].Name)
}

func TestFindSkipsRowsWithMalformedVolumes(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	// A garbage volume must not pass as zero; the whole row is dropped even
	// when the other window alone would clear the gate.
	deals := f.Find([]domain.FeedRow{
		feedRow("bad-24h", "5.00", "6.50", "abc", "10"),
		feedRow("bad-7d", "5.00", "6.50", "10", "n/a"),
		feedRow("good", "5.00", "6.50", "10", "10"),
	})
	require.Len(t, deals, 1)
	assert.Equal(t, "good", deals[0].Name)
}

func TestFindSkipsMalformedSuggestedPrice(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("bad-baseline", "5.00", "oops", "10", "10"),
	})
	assert.Empty(t, deals)
}

func TestFindEmptyVolumesCountAsZero(t *testing.T) {
	cfg := defaultDealConfig()
	cfg.MinVolume = 0
	f := NewDealFinder(cfg, testLogger())

	deals := f.Find([]domain.FeedRow{
		feedRow("no-volumes", "5.00", "6.50", "", ""),
	})
	require.Len(t, deals, 1)
	assert.Zero(t, deals[0].Volume24h)
	assert.Zero(t, deals[0].Volume7d)
}

func TestFindDefaultsCurrency(t *testing.T) {
	f := NewDealFinder(defaultDealConfig(), testLogger())

	row := feedRow("item", "5.00", "6.50", "10", "10")
	row.Currency = ""
	deals := f.Find([]domain.FeedRow{row})
	require.Len(t, deals, 1)
	assert.Equal(t, "EUR", deals[0].Currency)
}

func TestDealURLEncodesSpacesAsPlus(t *testing.T) {
	url := DealURL("AK-47 | Redline (Field-Tested)")
	assert.Equal(t,
		"https://skinport.com/market?item=AK-47+%7C+Redline+%28Field-Tested%29",
		url,
	)
}
