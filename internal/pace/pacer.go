// Package pace implements domain.RateLimiter in-process using
// golang.org/x/time/rate. One limiter per source, burst 1, so consecutive
// calls to the same source are spaced by at least the configured delay no
// matter how many goroutines share the pacer.
package pace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// Pacer enforces per-source minimum spacing between outbound calls.
type Pacer struct {
	mu       sync.Mutex
	limiters map[domain.Source]*rate.Limiter
}

// New creates a Pacer from a per-source minimum delay map. Sources with a
// non-positive delay are not limited.
func New(spacing map[domain.Source]time.Duration) *Pacer {
	limiters := make(map[domain.Source]*rate.Limiter, len(spacing))
	for source, delay := range spacing {
		if delay <= 0 {
			continue
		}
		limiters[source] = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Pacer{limiters: limiters}
}

// Wait blocks until the next call to the given source is allowed or ctx is
// cancelled. Sources without a configured delay pass through immediately.
func (p *Pacer) Wait(ctx context.Context, source domain.Source) error {
	p.mu.Lock()
	limiter, ok := p.limiters[source]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		// rate.Limiter reports an unreachable deadline with a plain error
		// that wraps nothing; restore the sentinel so callers can tell a
		// timeout from a transient failure.
		if _, hasDeadline := ctx.Deadline(); hasDeadline && ctx.Err() == nil {
			return fmt.Errorf("pace: wait for %s: %v: %w", source, err, context.DeadlineExceeded)
		}
		return fmt.Errorf("pace: wait for %s: %w", source, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*Pacer)(nil)
