package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

//go:embed scripts/min_spacing.lua
var minSpacingScript string

// RateLimiter enforces a minimum spacing between calls per source, shared
// across every process that points at the same Redis. The spacing state lives
// in Redis so restarts and fleet members all respect the same cooldown.
type RateLimiter struct {
	rdb     *redis.Client
	script  *redis.Script
	spacing map[domain.Source]time.Duration
}

// NewRateLimiter creates a RateLimiter over the given client. spacing maps
// each source to its required minimum gap between calls.
func NewRateLimiter(client *Client, spacing map[domain.Source]time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:     client.Underlying(),
		script:  redis.NewScript(minSpacingScript),
		spacing: spacing,
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// Wait blocks until the source's spacing window has elapsed or ctx is done.
// Sources without a configured spacing pass through immediately.
func (l *RateLimiter) Wait(ctx context.Context, source domain.Source) error {
	spacing, ok := l.spacing[source]
	if !ok || spacing <= 0 {
		return nil
	}

	key := fmt.Sprintf("ratelimit:%s:last_call", source)
	for {
		allowed, wait, err := l.tryClaim(ctx, key, spacing)
		if err != nil {
			return fmt.Errorf("redis: rate limit %s: %w", source, err)
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RateLimiter) tryClaim(ctx context.Context, key string, spacing time.Duration) (allowed bool, wait time.Duration, err error) {
	res, err := l.script.Run(ctx, l.rdb,
		[]string{key},
		time.Now().UnixMicro(),
		spacing.Microseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected script reply of length %d", len(res))
	}
	if res[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(res[1]) * time.Microsecond, nil
}
