// Package sessionstore opens the key-value backend selected by SESSION_STORE.
package sessionstore

import (
	"context"
	"fmt"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/db"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
	pkgredis "github.com/marche241/storefront-gateway/pkg/redis"
)

// Open returns the configured store and a function releasing its connections
func Open(ctx context.Context, cfg *config.Config) (kvstore.Store, func() error, error) {
	logger.Info("Opening session store", logger.Fields{
		"backend": cfg.Session.Store,
	})

	switch cfg.Session.Store {
	case "memory":
		return kvstore.NewMemoryStore(), func() error { return nil }, nil

	case "redis":
		client, err := pkgredis.Connect(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewRedisStore(client), client.Close, nil

	case "postgres":
		if err := db.Initialize(&cfg.Database); err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return kvstore.NewGormStore(db.GetDB()), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
