package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGormStore(t *testing.T) (*GormStore, *fakeClock) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewGormStore(db).WithClock(clock.Now)
	require.NoError(t, store.Migrate())
	return store, clock
}

func TestGormStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t)

	require.NoError(t, store.Set(ctx, "panier_session_id_5", "first", 0))
	require.NoError(t, store.Set(ctx, "panier_session_id_5", "second", 0))

	val, ok, err := store.Get(ctx, "panier_session_id_5")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", val)
}

func TestGormStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t)

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGormStore_ExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	store, clock := setupGormStore(t)

	require.NoError(t, store.Set(ctx, "short", "v", time.Hour))
	require.NoError(t, store.Set(ctx, "long", "v", 48*time.Hour))
	require.NoError(t, store.Set(ctx, "forever", "v", 0))

	clock.Advance(2 * time.Hour)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, _ = store.Get(ctx, "long")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok)
}
