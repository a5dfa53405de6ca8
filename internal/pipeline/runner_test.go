package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/analysis"
	"github.com/alanyoungcy/skinarb/internal/domain"
)

// capturingStore records saved runs.
type capturingStore struct {
	mu   sync.Mutex
	runs []domain.OpportunityRun
	err  error
}

func (s *capturingStore) SaveRun(ctx context.Context, run domain.OpportunityRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return s.err
}

func (s *capturingStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return nil, nil
}

// capturingExporter records exported runs.
type capturingExporter struct {
	runs []domain.OpportunityRun
	err  error
}

func (e *capturingExporter) ExportRun(run domain.OpportunityRun) (string, error) {
	e.runs = append(e.runs, run)
	return "exports/test.csv", e.err
}

// capturingNotifier records notification events.
type capturingNotifier struct {
	events []string
}

func (n *capturingNotifier) Notify(ctx context.Context, event, title, message string) error {
	n.events = append(n.events, event)
	return nil
}

// memFeedCache keeps the last published feed.
type memFeedCache struct {
	rows      []domain.FeedRow
	updatedAt time.Time
}

func (c *memFeedCache) PutFeed(ctx context.Context, rows []domain.FeedRow, updatedAt time.Time) error {
	c.rows = rows
	c.updatedAt = updatedAt
	return nil
}

func (c *memFeedCache) GetFeed(ctx context.Context) ([]domain.FeedRow, time.Time, error) {
	if c.rows == nil {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return c.rows, c.updatedAt, nil
}

func testAnalyzer() *analysis.Analyzer {
	return analysis.NewAnalyzer(analysis.AnalyzerConfig{
		CommissionRate: 0.12,
		Strategy: domain.StrategyPolicy{
			MinProfitPct: 10,
			MaxProfitPct: 200,
			MinQuantity:  1,
		},
		Risk: domain.RiskPolicy{
			MaxInvestmentPerItem: 50,
			MaxTotalInvestment:   500,
			MaxItemsPerDay:       20,
		},
	}, testLogger())
}

func profitableSources() (lis, sp *fakeSource) {
	lis = &fakeSource{source: domain.SourceLisSkins, snap: domain.MarketSnapshot{
		Source:    domain.SourceLisSkins,
		FetchedAt: time.Now().UTC(),
		Listings: []domain.Listing{
			{Name: "item", Price: 2.00},
		},
	}}
	sp = &fakeSource{source: domain.SourceSkinport, snap: domain.MarketSnapshot{
		Source:    domain.SourceSkinport,
		FetchedAt: time.Now().UTC(),
		Items: []domain.ReferenceItem{
			{Name: "item", MinPrice: 2.80, SuggestedPrice: 3.00, Quantity: 7, Currency: "EUR"},
		},
	}}
	return lis, sp
}

func TestRunCycleReportsOpportunities(t *testing.T) {
	lis, sp := profitableSources()
	fetcher := NewFetcher(time.Second, testLogger(), lis, sp)

	store := &capturingStore{}
	exporter := &capturingExporter{}
	notifier := &capturingNotifier{}
	feed := &memFeedCache{}

	runner := NewRunner(fetcher, testAnalyzer(), time.Minute, testLogger()).
		WithStore(store).
		WithExporter(exporter).
		WithNotifier(notifier).
		WithFeedCache(feed)

	run, err := runner.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Len(t, run.Opportunities, 1)
	assert.InDelta(t, 32.0, run.Opportunities[0].ProfitPct, 1e-9)

	require.Len(t, store.runs, 1)
	assert.Equal(t, run.ID, store.runs[0].ID)
	require.Len(t, exporter.runs, 1)
	assert.Equal(t, []string{"opportunities_found"}, notifier.events)

	// The Skinport side was published as the latest feed.
	require.Len(t, feed.rows, 1)
	assert.Equal(t, "item", feed.rows[0].Name)
	assert.Equal(t, "2.8", feed.rows[0].CurrentPrice)
	assert.Equal(t, "3", feed.rows[0].SuggestedPrice)
}

func TestRunCycleNoOpportunitiesSkipsReporting(t *testing.T) {
	lis, sp := profitableSources()
	// Make the margin vanish.
	sp.snap.Items[0].SuggestedPrice = 2.10

	fetcher := NewFetcher(time.Second, testLogger(), lis, sp)
	store := &capturingStore{}
	notifier := &capturingNotifier{}

	runner := NewRunner(fetcher, testAnalyzer(), time.Minute, testLogger()).
		WithStore(store).
		WithNotifier(notifier)

	run, err := runner.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Empty(t, run.Opportunities)
	assert.Empty(t, store.runs)
	assert.Empty(t, notifier.events)
}

func TestRunCycleFetchFailureAbortsCycle(t *testing.T) {
	lis, sp := profitableSources()
	lis.err = domain.NewFetchError(domain.SourceLisSkins, domain.FetchTransient, errors.New("boom"))

	fetcher := NewFetcher(time.Second, testLogger(), lis, sp)
	store := &capturingStore{}

	runner := NewRunner(fetcher, testAnalyzer(), time.Minute, testLogger()).WithStore(store)

	run, err := runner.RunCycle(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.Empty(t, store.runs)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestRunCycleDownstreamFailureIsNonFatal(t *testing.T) {
	lis, sp := profitableSources()
	fetcher := NewFetcher(time.Second, testLogger(), lis, sp)

	store := &capturingStore{err: errors.New("db down")}
	runner := NewRunner(fetcher, testAnalyzer(), time.Minute, testLogger()).WithStore(store)

	run, err := runner.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Opportunities, 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lis, sp := profitableSources()
	fetcher := NewFetcher(time.Second, testLogger(), lis, sp)
	runner := NewRunner(fetcher, testAnalyzer(), time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// Let the first cycle start, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
}
