package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// DealStore implements domain.DealStore using PostgreSQL.
type DealStore struct {
	pool *pgxpool.Pool
}

// NewDealStore creates a DealStore backed by the given connection pool.
func NewDealStore(pool *pgxpool.Pool) *DealStore {
	return &DealStore{pool: pool}
}

var _ domain.DealStore = (*DealStore)(nil)

const dealSelectCols = `id, item_name, current_price, reference_price, discount_pct,
	volume_24h, volume_7d, currency, url, detected_at`

func scanDealRows(rows pgx.Rows) ([]domain.DealCandidate, error) {
	var deals []domain.DealCandidate
	for rows.Next() {
		var d domain.DealCandidate
		if err := rows.Scan(
			&d.ID, &d.Name, &d.CurrentPrice, &d.ReferencePrice, &d.DiscountPct,
			&d.Volume24h, &d.Volume7d, &d.Currency, &d.URL, &d.DetectedAt,
		); err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// SaveDeals inserts the flagged deals using a pgx Batch.
func (s *DealStore) SaveDeals(ctx context.Context, deals []domain.DealCandidate) error {
	if len(deals) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO deals (
			id, item_name, current_price, reference_price, discount_pct,
			volume_24h, volume_7d, currency, url, detected_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	for _, d := range deals {
		batch.Queue(query,
			d.ID, d.Name, d.CurrentPrice, d.ReferencePrice, d.DiscountPct,
			d.Volume24h, d.Volume7d, d.Currency, d.URL, d.DetectedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range deals {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert deal batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recently detected deals.
func (s *DealStore) ListRecent(ctx context.Context, limit int) ([]domain.DealCandidate, error) {
	query := `SELECT ` + dealSelectCols + `
		FROM deals ORDER BY detected_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent deals: %w", err)
	}
	defer rows.Close()

	deals, err := scanDealRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent deals: %w", err)
	}
	return deals, nil
}

// ListDealsBefore returns all deals detected strictly before the given time,
// oldest first, for archiving.
func (s *DealStore) ListDealsBefore(ctx context.Context, before time.Time) ([]domain.DealCandidate, error) {
	query := `SELECT ` + dealSelectCols + `
		FROM deals WHERE detected_at < $1 ORDER BY detected_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list deals before: %w", err)
	}
	defer rows.Close()
	return scanDealRows(rows)
}

// DeleteDealsBefore removes deals detected before the given time. Returns the
// number deleted.
func (s *DealStore) DeleteDealsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM deals WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete deals before: %w", err)
	}
	return tag.RowsAffected(), nil
}
