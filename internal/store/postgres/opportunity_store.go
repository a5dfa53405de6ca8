package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)

const opportunitySelectCols = `id, item_name, buy_price, sell_price, net_sell_price,
	commission, gross_profit, net_profit, profit_pct, listing_count,
	investment, detected_at`

func scanOpportunityRows(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		if err := rows.Scan(
			&o.ID, &o.Name, &o.BuyPrice, &o.SellPrice, &o.NetSellPrice,
			&o.Commission, &o.GrossProfit, &o.NetProfit, &o.ProfitPct,
			&o.ListingCount, &o.Investment, &o.DetectedAt,
		); err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// SaveRun persists a run and its opportunities in one transaction, batching
// the opportunity inserts.
func (s *OpportunityStore) SaveRun(ctx context.Context, run domain.OpportunityRun) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO opportunity_runs (
			id, started_at, opportunity_count, net_profit, investment, roi_pct
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StartedAt, run.Totals.Count,
		run.Totals.NetProfit, run.Totals.Investment, run.Totals.ROIPct,
	); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	if len(run.Opportunities) > 0 {
		batch := &pgx.Batch{}
		const query = `
			INSERT INTO opportunities (
				id, run_id, item_name, buy_price, sell_price, net_sell_price,
				commission, gross_profit, net_profit, profit_pct,
				listing_count, investment, detected_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10,
				$11, $12, $13
			)`

		for _, o := range run.Opportunities {
			batch.Queue(query,
				o.ID, run.ID, o.Name, o.BuyPrice, o.SellPrice, o.NetSellPrice,
				o.Commission, o.GrossProfit, o.NetProfit, o.ProfitPct,
				o.ListingCount, o.Investment, o.DetectedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range run.Opportunities {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert opportunity batch item %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close opportunity batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save run: %w", err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities across runs.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunitySelectCols + `
		FROM opportunities ORDER BY detected_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	opps, err := scanOpportunityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent opportunities: %w", err)
	}
	return opps, nil
}

// ListBefore returns all opportunities detected strictly before the given
// time, oldest first, for archiving.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunitySelectCols + `
		FROM opportunities WHERE detected_at < $1 ORDER BY detected_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	defer rows.Close()
	return scanOpportunityRows(rows)
}

// DeleteBefore removes opportunities detected before the given time, plus the
// runs left with no opportunities. Returns the number of opportunities
// deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		DELETE FROM opportunity_runs r
		WHERE r.started_at < $1
		  AND NOT EXISTS (SELECT 1 FROM opportunities o WHERE o.run_id = r.id)`,
		before,
	); err != nil {
		return tag.RowsAffected(), fmt.Errorf("postgres: delete empty runs before: %w", err)
	}
	return tag.RowsAffected(), nil
}
