// Package kvstore provides the key-value storage the gateway keeps visitor
// state in. It plays the role browser local storage plays for a web client:
// small string values under string keys, namespaced per visitor.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by backends that cannot currently serve requests.
var ErrUnavailable = errors.New("kvstore: storage unavailable")

// Store is a string key-value store. A ttl of zero means the value never
// expires on its own. Remove must not fail when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// Sweeper is implemented by backends that need expired entries purged
// explicitly. Redis expires keys natively and does not implement it.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Prefixed returns a view of store where every key is namespaced under prefix.
func Prefixed(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &prefixed{inner: store, prefix: prefix + ":"}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}
