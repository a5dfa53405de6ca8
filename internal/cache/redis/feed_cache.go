package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

const feedKey = "feed:latest"

// FeedCache keeps the most recent market feed in a Redis hash so the deal
// finder can run without touching the source APIs. Only the latest feed is
// retained; every publish replaces the previous one.
type FeedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFeedCache creates a FeedCache. ttl bounds how long a published feed
// survives without a refresh; ttl <= 0 keeps it forever.
func NewFeedCache(client *Client, ttl time.Duration) *FeedCache {
	return &FeedCache{rdb: client.Underlying(), ttl: ttl}
}

var _ domain.FeedCache = (*FeedCache)(nil)

// PutFeed stores rows as the latest feed, stamped with updatedAt.
func (c *FeedCache) PutFeed(ctx context.Context, rows []domain.FeedRow, updatedAt time.Time) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("redis: marshal feed: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, feedKey,
		"rows", data,
		"updated_at", updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, feedKey, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put feed: %w", err)
	}
	return nil
}

// GetFeed returns the latest feed and its publish time. A missing feed
// returns domain.ErrNotFound.
func (c *FeedCache) GetFeed(ctx context.Context) ([]domain.FeedRow, time.Time, error) {
	vals, err := c.rdb.HMGet(ctx, feedKey, "rows", "updated_at").Result()
	if err != nil {
		if err == redis.Nil {
			return nil, time.Time{}, domain.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("redis: get feed: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return nil, time.Time{}, domain.ErrNotFound
	}

	var rows []domain.FeedRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: decode feed: %w", err)
	}

	var updatedAt time.Time
	if ts, ok := vals[1].(string); ok && ts != "" {
		updatedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("redis: parse feed timestamp: %w", err)
		}
	}
	return rows, updatedAt, nil
}

// Feed satisfies the deal-finder feed source over the cached feed.
func (c *FeedCache) Feed(ctx context.Context) ([]domain.FeedRow, time.Time, error) {
	return c.GetFeed(ctx)
}
