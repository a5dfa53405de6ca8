package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/config"
	"github.com/alanyoungcy/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOpportunityStore struct {
	opps  []domain.Opportunity
	limit int
}

func (s *fakeOpportunityStore) SaveRun(ctx context.Context, run domain.OpportunityRun) error {
	return nil
}

func (s *fakeOpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	s.limit = limit
	return s.opps, nil
}

type fakeDealStore struct {
	deals []domain.DealCandidate
	limit int
}

func (s *fakeDealStore) SaveDeals(ctx context.Context, deals []domain.DealCandidate) error {
	return nil
}

func (s *fakeDealStore) ListRecent(ctx context.Context, limit int) ([]domain.DealCandidate, error) {
	s.limit = limit
	return s.deals, nil
}

func TestReportModeListsStoredHistory(t *testing.T) {
	cfg := config.Defaults()
	a := New(&cfg, testLogger())

	oppStore := &fakeOpportunityStore{opps: []domain.Opportunity{
		{Name: "AK-47 | Redline (Field-Tested)", BuyPrice: 2.00, NetSellPrice: 2.64, ProfitPct: 32},
	}}
	dealStore := &fakeDealStore{deals: []domain.DealCandidate{
		{Name: "P250 | Sand Dune (Field-Tested)", CurrentPrice: 5.00, DiscountPct: -23.1},
	}}

	deps := &Dependencies{OpportunityStore: oppStore, DealStore: dealStore}
	require.NoError(t, a.ReportMode(context.Background(), deps))
	assert.Equal(t, reportLimit, oppStore.limit)
	assert.Equal(t, reportLimit, dealStore.limit)
}

func TestReportModeRequiresStores(t *testing.T) {
	cfg := config.Defaults()
	a := New(&cfg, testLogger())

	err := a.ReportMode(context.Background(), &Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
