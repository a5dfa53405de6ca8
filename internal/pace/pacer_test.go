package pace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

func TestWaitSpacesConsecutiveCalls(t *testing.T) {
	p := New(map[domain.Source]time.Duration{
		domain.SourceLisSkins: 50 * time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx, domain.SourceLisSkins))

	start := time.Now()
	require.NoError(t, p.Wait(ctx, domain.SourceLisSkins))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitSourcesAreIndependent(t *testing.T) {
	p := New(map[domain.Source]time.Duration{
		domain.SourceLisSkins: time.Hour,
		domain.SourceSkinport: 0,
	})

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx, domain.SourceLisSkins))

	// A different source is not held back by the first one's cooldown.
	start := time.Now()
	require.NoError(t, p.Wait(ctx, domain.SourceSkinport))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitUnknownSourcePassesThrough(t *testing.T) {
	p := New(nil)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), domain.SourceSkinport))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitShortDeadlineReportsDeadlineExceeded(t *testing.T) {
	p := New(map[domain.Source]time.Duration{
		domain.SourceLisSkins: time.Hour,
	})
	require.NoError(t, p.Wait(context.Background(), domain.SourceLisSkins))

	// The next slot is an hour away; a 20ms deadline can never reach it.
	// The wait must fail fast and carry the deadline sentinel.
	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Wait(shortCtx, domain.SourceLisSkins)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitHonoursContextCancellation(t *testing.T) {
	p := New(map[domain.Source]time.Duration{
		domain.SourceLisSkins: time.Hour,
	})

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx, domain.SourceLisSkins))

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := p.Wait(shortCtx, domain.SourceLisSkins)
	require.Error(t, err)
}
