package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is a scriptable SourceFetcher.
type fakeSource struct {
	source domain.Source
	snap   domain.MarketSnapshot
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeSource) Source() domain.Source { return f.source }

func (f *fakeSource) FetchItems(ctx context.Context) (domain.MarketSnapshot, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.MarketSnapshot{}, domain.NewFetchError(f.source, domain.FetchTimeout, ctx.Err())
		case <-time.After(f.delay):
		}
	}
	return f.snap, f.err
}

func listingSnap(source domain.Source, names ...string) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{Source: source, FetchedAt: time.Now().UTC()}
	for _, n := range names {
		snap.Listings = append(snap.Listings, domain.Listing{Name: n, Price: 1})
	}
	return snap
}

func itemSnap(source domain.Source, names ...string) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{Source: source, FetchedAt: time.Now().UTC()}
	for _, n := range names {
		snap.Items = append(snap.Items, domain.ReferenceItem{Name: n, MinPrice: 1, SuggestedPrice: 2, Quantity: 1})
	}
	return snap
}

func TestFetchAllBothSucceed(t *testing.T) {
	lis := &fakeSource{source: domain.SourceLisSkins, snap: listingSnap(domain.SourceLisSkins, "x")}
	sp := &fakeSource{source: domain.SourceSkinport, snap: itemSnap(domain.SourceSkinport, "x")}

	f := NewFetcher(time.Second, testLogger(), lis, sp)
	snaps, errs := f.FetchAll(context.Background())

	assert.Empty(t, errs)
	require.Len(t, snaps, 2)
	assert.Len(t, snaps[domain.SourceLisSkins].Listings, 1)
	assert.Len(t, snaps[domain.SourceSkinport].Items, 1)
}

func TestFetchAllOneFailureIsIsolated(t *testing.T) {
	boom := domain.NewFetchError(domain.SourceLisSkins, domain.FetchTransient, errors.New("boom"))
	lis := &fakeSource{source: domain.SourceLisSkins, err: boom}
	sp := &fakeSource{source: domain.SourceSkinport, snap: itemSnap(domain.SourceSkinport, "x")}

	f := NewFetcher(time.Second, testLogger(), lis, sp)
	snaps, errs := f.FetchAll(context.Background())

	// The healthy source still completes; exactly one error is reported.
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[domain.SourceLisSkins], boom)
	require.Len(t, snaps, 1)
	assert.Contains(t, snaps, domain.SourceSkinport)
}

func TestFetchAllEmptyPayloadIsValidationError(t *testing.T) {
	lis := &fakeSource{source: domain.SourceLisSkins, snap: domain.MarketSnapshot{Source: domain.SourceLisSkins}}
	sp := &fakeSource{source: domain.SourceSkinport, snap: itemSnap(domain.SourceSkinport, "x")}

	f := NewFetcher(time.Second, testLogger(), lis, sp)
	_, errs := f.FetchAll(context.Background())

	require.Len(t, errs, 1)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, errs[domain.SourceLisSkins], &fetchErr)
	assert.Equal(t, domain.FetchValidation, fetchErr.Kind)
}

func TestFetchAllPerCallTimeout(t *testing.T) {
	slow := &fakeSource{
		source: domain.SourceLisSkins,
		snap:   listingSnap(domain.SourceLisSkins, "x"),
		delay:  200 * time.Millisecond,
	}
	sp := &fakeSource{source: domain.SourceSkinport, snap: itemSnap(domain.SourceSkinport, "x")}

	f := NewFetcher(20*time.Millisecond, testLogger(), slow, sp)
	snaps, errs := f.FetchAll(context.Background())

	require.Len(t, errs, 1)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, errs[domain.SourceLisSkins], &fetchErr)
	assert.Equal(t, domain.FetchTimeout, fetchErr.Kind)
	assert.Contains(t, snaps, domain.SourceSkinport)
}
