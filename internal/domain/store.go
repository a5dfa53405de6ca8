package domain

import "context"

// OpportunityStore persists analysis runs for later review. The scanner core
// only emits in-memory records; the store is a downstream collaborator.
type OpportunityStore interface {
	SaveRun(ctx context.Context, run OpportunityRun) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// DealStore persists flagged deals.
type DealStore interface {
	SaveDeals(ctx context.Context, deals []DealCandidate) error
	ListRecent(ctx context.Context, limit int) ([]DealCandidate, error)
}
