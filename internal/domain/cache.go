package domain

import (
	"context"
	"time"
)

// RateLimiter enforces minimum spacing between calls to one source. Wait
// blocks until the caller may proceed or the context is cancelled; concurrent
// callers for the same source serialize through the limiter, so the spacing
// invariant holds process-wide (or fleet-wide for the Redis implementation).
type RateLimiter interface {
	Wait(ctx context.Context, source Source) error
}

// FeedCache holds the latest exported market feed so the deal finder can run
// against the previous cycle's merge without re-fetching.
type FeedCache interface {
	PutFeed(ctx context.Context, rows []FeedRow, updatedAt time.Time) error
	// GetFeed returns ErrNotFound when no feed has been published yet.
	GetFeed(ctx context.Context) ([]FeedRow, time.Time, error)
}
