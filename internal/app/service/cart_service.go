package service

import (
	"context"
	"sync"
	"time"

	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/session"
)

// SessionStatus describes the cart session of one shop for a visitor
type SessionStatus struct {
	ShopID    uint       `json:"boutique_id"`
	Valid     bool       `json:"valide"`
	ExpiresAt *time.Time `json:"expire_le,omitempty"`
}

// CartService hands out the cart client of each visitor. A visitor's client
// is kept between requests so the last adopted snapshot survives, and is
// dropped after a period without use.
type CartService interface {
	Cart(visitor string) *cart.Client
	SessionStatus(ctx context.Context, visitor string, shopID uint) SessionStatus
	ResetSession(ctx context.Context, visitor string, shopID uint) error
	EvictIdle(maxIdle time.Duration) int
}

type cartEntry struct {
	client   *cart.Client
	lastSeen time.Time
}

type cartService struct {
	syncer   *cart.Syncer
	sessions *session.Manager
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*cartEntry
}

func NewCartService(syncer *cart.Syncer, sessions *session.Manager) CartService {
	return newCartService(syncer, sessions, time.Now)
}

func newCartService(syncer *cart.Syncer, sessions *session.Manager, now func() time.Time) *cartService {
	return &cartService{
		syncer:   syncer,
		sessions: sessions,
		now:      now,
		clients:  make(map[string]*cartEntry),
	}
}

func (s *cartService) Cart(visitor string) *cart.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.clients[visitor]
	if !ok {
		entry = &cartEntry{client: s.syncer.For(visitor, s.sessions.Namespace(visitor))}
		s.clients[visitor] = entry
		logger.Debug("Created cart client", logger.Fields{
			"visitor_id": visitor,
		})
	}
	entry.lastSeen = s.now()
	return entry.client
}

func (s *cartService) SessionStatus(ctx context.Context, visitor string, shopID uint) SessionStatus {
	status := SessionStatus{ShopID: shopID}
	sessions := s.sessions.Namespace(visitor)
	scope := cart.Scope(shopID)

	if !sessions.IsSessionValid(ctx, scope) {
		return status
	}
	status.Valid = true
	if expiry, ok := sessions.Expiry(ctx, scope); ok {
		status.ExpiresAt = &expiry
	}
	return status
}

// ResetSession abandons the visitor's session for shopID. The server cart is
// left as is; the next cart call starts a new session.
func (s *cartService) ResetSession(ctx context.Context, visitor string, shopID uint) error {
	logger.Info("Resetting cart session", logger.Fields{
		"visitor_id": visitor,
		"shop_id":    shopID,
	})

	if err := s.sessions.Namespace(visitor).ClearSession(ctx, cart.Scope(shopID)); err != nil {
		logger.Error("Failed to clear cart session", err, logger.Fields{
			"visitor_id": visitor,
			"shop_id":    shopID,
		})
		return err
	}
	s.Cart(visitor).Forget(shopID)
	return nil
}

// EvictIdle drops clients unused for maxIdle and returns how many went
func (s *cartService) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for visitor, entry := range s.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(s.clients, visitor)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debug("Evicted idle cart clients", logger.Fields{
			"evicted":   evicted,
			"remaining": len(s.clients),
		})
	}
	return evicted
}
