package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// multipartThreshold is the payload size above which SaveRaw switches to a
// multipart upload. Full Lis-Skins dumps routinely exceed it.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotStore implements domain.SnapshotStore by writing each raw source
// payload under a timestamped key:
//
//	snapshots/lisskins/2026-08-30_14-05-02.json
type SnapshotStore struct {
	writer domain.BlobWriter
}

// NewSnapshotStore creates a SnapshotStore over the given writer.
func NewSnapshotStore(writer domain.BlobWriter) *SnapshotStore {
	return &SnapshotStore{writer: writer}
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// SaveRaw uploads body verbatim. The key embeds the fetch time so successive
// snapshots never overwrite each other.
func (s *SnapshotStore) SaveRaw(ctx context.Context, source domain.Source, fetchedAt time.Time, body []byte) error {
	key := snapshotKey(source, fetchedAt)

	if int64(len(body)) > multipartThreshold {
		if err := s.writer.PutMultipart(ctx, key, bytes.NewReader(body), minPartSize); err != nil {
			return fmt.Errorf("s3blob: snapshot %s: %w", key, err)
		}
		return nil
	}

	if err := s.writer.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("s3blob: snapshot %s: %w", key, err)
	}
	return nil
}

func snapshotKey(source domain.Source, fetchedAt time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.json", source, fetchedAt.UTC().Format("2006-01-02_15-04-05"))
}
