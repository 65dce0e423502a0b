// Package session manages the anonymous visitor session identifiers that tie
// a cart to a visitor within one shop. Identifiers live in a kvstore.Store,
// one id/expiry pair per shop scope, and stay valid for one calendar month.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
)

const (
	idKeyBase     = "panier_session_id"
	expiryKeyBase = "panier_session_expiry"

	// expiryLayout matches the ISO-8601 strings browsers produce with toISOString.
	expiryLayout = "2006-01-02T15:04:05.000Z07:00"
)

const lockStripes = 64

// Manager hands out per-shop session identifiers.
type Manager struct {
	base      kvstore.Store
	store     kvstore.Store
	namespace string
	now       func() time.Time
	newID     func(time.Time) string

	// shared by every namespace view so concurrent first visits of the same
	// visitor and shop agree on one id
	locks *[lockStripes]sync.Mutex
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides how fresh identifiers are minted.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(m *Manager) { m.newID = gen }
}

func NewManager(store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		base:  store,
		store: store,
		now:   time.Now,
		newID: NewID,
		locks: new([lockStripes]sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns a view of m whose keys live under ns, typically one
// visitor. Views share the clock, generator and creation locks of m.
func (m *Manager) Namespace(ns string) *Manager {
	view := *m
	view.namespace = ns
	view.store = kvstore.Prefixed(m.base, ns)
	return &view
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(m.namespace))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return &m.locks[h.Sum32()%lockStripes]
}

// NewID mints an identifier of the form session_<unix millis>_<base36 random>.
func NewID(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

// Keys returns the storage keys holding the id and expiry for scope. An empty
// scope is the global scope.
func Keys(scope string) (idKey, expiryKey string) {
	if scope == "" {
		return idKeyBase, expiryKeyBase
	}
	return idKeyBase + "_" + scope, expiryKeyBase + "_" + scope
}

// GetOrCreateSessionID returns the stored id for scope while it is unexpired.
// Otherwise a new id with a one month expiry is stored and returned. When the
// store fails the id is still returned but lives only for this call.
func (m *Manager) GetOrCreateSessionID(ctx context.Context, scope string) string {
	if id, ok, err := m.current(ctx, scope); err != nil {
		return m.transient(scope, err)
	} else if ok {
		return id
	}

	idKey, _ := Keys(scope)
	mu := m.lockFor(idKey)
	mu.Lock()
	defer mu.Unlock()

	// another caller may have created it while we waited
	if id, ok, err := m.current(ctx, scope); err != nil {
		return m.transient(scope, err)
	} else if ok {
		return id
	}

	now := m.now()
	id := m.newID(now)
	expiry := now.AddDate(0, 1, 0)
	if err := m.save(ctx, scope, id, expiry, now); err != nil {
		logger.Warn("Session storage write failed, issuing transient session id", logger.Fields{
			"scope": scope,
			"error": err.Error(),
		})
		return id
	}

	logger.Debug("New cart session issued", logger.Fields{
		"scope":      scope,
		"session_id": id,
		"expires_at": expiry.UTC().Format(expiryLayout),
	})
	return id
}

func (m *Manager) current(ctx context.Context, scope string) (string, bool, error) {
	id, expiry, err := m.load(ctx, scope)
	if err != nil {
		return "", false, err
	}
	return id, id != "" && m.now().Before(expiry), nil
}

func (m *Manager) transient(scope string, err error) string {
	logger.Warn("Session storage read failed, issuing transient session id", logger.Fields{
		"scope": scope,
		"error": err.Error(),
	})
	return m.newID(m.now())
}

// ClearSession forgets the id stored for scope. Clearing an absent session is
// not an error.
func (m *Manager) ClearSession(ctx context.Context, scope string) error {
	idKey, expiryKey := Keys(scope)
	if err := m.store.Remove(ctx, idKey); err != nil {
		return fmt.Errorf("failed to remove session id: %w", err)
	}
	if err := m.store.Remove(ctx, expiryKey); err != nil {
		return fmt.Errorf("failed to remove session expiry: %w", err)
	}
	return nil
}

// IsSessionValid reports whether scope has a stored id whose expiry is still
// in the future. It never writes.
func (m *Manager) IsSessionValid(ctx context.Context, scope string) bool {
	id, expiry, err := m.load(ctx, scope)
	if err != nil || id == "" {
		return false
	}
	return m.now().Before(expiry)
}

// Expiry returns the stored expiry for scope, if any.
func (m *Manager) Expiry(ctx context.Context, scope string) (time.Time, bool) {
	id, expiry, err := m.load(ctx, scope)
	if err != nil || id == "" || expiry.IsZero() {
		return time.Time{}, false
	}
	return expiry, true
}

// load returns an empty id when nothing usable is stored. A missing or
// unparseable expiry yields a zero expiry, which is never valid.
func (m *Manager) load(ctx context.Context, scope string) (string, time.Time, error) {
	idKey, expiryKey := Keys(scope)

	id, ok, err := m.store.Get(ctx, idKey)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, nil
	}

	raw, ok, err := m.store.Get(ctx, expiryKey)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return id, time.Time{}, nil
	}
	expiry, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return id, time.Time{}, nil
	}
	return id, expiry, nil
}

func (m *Manager) save(ctx context.Context, scope, id string, expiry, now time.Time) error {
	idKey, expiryKey := Keys(scope)
	ttl := expiry.Sub(now)

	if err := m.store.Set(ctx, idKey, id, ttl); err != nil {
		return err
	}
	if err := m.store.Set(ctx, expiryKey, expiry.UTC().Format(expiryLayout), ttl); err != nil {
		// an id without expiry is never read as valid; drop it
		if rmErr := m.store.Remove(ctx, idKey); rmErr != nil {
			logger.Warn("Failed to remove orphaned session id", logger.Fields{
				"scope": scope,
				"error": rmErr.Error(),
			})
		}
		return err
	}
	return nil
}
