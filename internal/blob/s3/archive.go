package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these through their ListBefore methods; the archiver never needs
// the full store surface.

// OpportunityArchiveStore provides read access to old opportunities.
type OpportunityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error)
}

// DealArchiveStore provides read access to old deals.
type DealArchiveStore interface {
	ListDealsBefore(ctx context.Context, before time.Time) ([]domain.DealCandidate, error)
}

// Archiver moves cold scan history out of Postgres into object storage as
// monthly JSONL files. Deleting the archived rows from the primary store is
// a separate, explicit step taken after the archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	opps   OpportunityArchiveStore
	deals  DealArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, opps OpportunityArchiveStore, deals DealArchiveStore) *Archiver {
	return &Archiver{
		writer: writer,
		opps:   opps,
		deals:  deals,
	}
}

// ArchiveOpportunities uploads every opportunity detected before the cutoff
// to archive/opportunities/YYYY-MM.jsonl and returns the archived count.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}
	return int64(len(opps)), nil
}

// ArchiveDeals uploads every deal detected before the cutoff to
// archive/deals/YYYY-MM.jsonl and returns the archived count.
func (a *Archiver) ArchiveDeals(ctx context.Context, before time.Time) (int64, error) {
	deals, err := a.deals.ListDealsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive deals query: %w", err)
	}
	if len(deals) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(deals)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive deals marshal: %w", err)
	}

	path := archivePath("deals", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive deals upload: %w", err)
	}
	return int64(len(deals)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
