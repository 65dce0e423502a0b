package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
)

func TestOpen_Memory(t *testing.T) {
	store, closeFn, err := Open(context.Background(), &config.Config{Session: config.SessionConfig{Store: "memory"}})
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &kvstore.MemoryStore{}, store)
	require.NoError(t, store.Set(context.Background(), "k", "v", time.Minute))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	cfg := &config.Config{
		Session: config.SessionConfig{Store: "redis"},
		Redis:   config.RedisConfig{Host: "127.0.0.1", Port: "1"},
	}

	_, _, err := Open(context.Background(), cfg)

	assert.Error(t, err)
}

func TestOpen_Unknown(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{Session: config.SessionConfig{Store: "etcd"}})

	assert.Error(t, err)
}
