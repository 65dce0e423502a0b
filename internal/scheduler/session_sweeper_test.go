package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/pkg/kvstore"
)

type countingEvicter struct {
	mu      sync.Mutex
	maxIdle []time.Duration
}

func (e *countingEvicter) EvictIdle(maxIdle time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxIdle = append(e.maxIdle, maxIdle)
	return 3
}

func TestSessionSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := kvstore.NewMemoryStore().WithClock(clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, store.Set(ctx, "long", "b", time.Hour))
	now = now.Add(2 * time.Minute)

	evicter := &countingEvicter{}
	sweeper := NewSessionSweeper("@every 1h", store, evicter, 30*time.Minute)
	sweeper.Sweep()

	assert.Equal(t, 1, store.Len())
	_, ok, err := store.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{30 * time.Minute}, evicter.maxIdle)
}

func TestSessionSweeper_InvalidSpec(t *testing.T) {
	sweeper := NewSessionSweeper("every now and then", kvstore.NewMemoryStore(), nil, 0)

	assert.Error(t, sweeper.Start())
}

func TestSessionSweeper_StartStop(t *testing.T) {
	sweeper := NewSessionSweeper("@every 1h", kvstore.NewMemoryStore(), &countingEvicter{}, time.Minute)

	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
