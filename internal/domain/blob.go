package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SnapshotStore archives raw source payloads. Clients call it on a detached
// goroutine after a successful fetch; a slow or failing archive must never
// delay or fail the fetch itself.
type SnapshotStore interface {
	SaveRaw(ctx context.Context, source Source, fetchedAt time.Time, body []byte) error
}
