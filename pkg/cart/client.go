// Package cart keeps a visitor's cart in step with the Marché241 API. The
// server cart is the only source of truth: after every successful mutation the
// full server cart is read back and adopted wholesale.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be a positive integer")
	ErrInvalidProduct  = errors.New("cart: product id is required")
	ErrInvalidItem     = errors.New("cart: cart item id is required")
	ErrItemNotInCart   = errors.New("cart: item is not in this cart")
)

// API is the subset of the Marché241 client the cart needs
type API interface {
	AddToCart(ctx context.Context, req marche.AddToCartRequest) (*marche.CartLineResponse, error)
	GetCart(ctx context.Context, sessionID string, shopID uint) (*marche.CartResponse, error)
	UpdateCartQuantity(ctx context.Context, itemID uint, quantity int) (*marche.CartLineResponse, error)
	RemoveCartLine(ctx context.Context, itemID uint) (*marche.Ack, error)
	ClearCart(ctx context.Context, sessionID string, shopID uint) (*marche.Ack, error)
}

// Sessions hands out the per-shop session identifiers
type Sessions interface {
	GetOrCreateSessionID(ctx context.Context, scope string) string
}

// AdoptFunc is called with every snapshot a client adopts
type AdoptFunc func(visitor string, snap *Snapshot)

// Ack is the outcome of a mutation. Snapshot is the cart read back after the
// mutation; it is nil when the mutation succeeded but the read back failed.
type Ack struct {
	Message  string           `json:"message"`
	Line     *marche.CartLine `json:"panier_item,omitempty"`
	Snapshot *Snapshot        `json:"panier,omitempty"`
}

// Syncer is shared by all visitors. It owns the de-duplication group so that
// identical calls in flight at the same time reach the API once.
type Syncer struct {
	api   API
	group singleflight.Group
	now   func() time.Time

	mu    sync.RWMutex
	hooks []AdoptFunc
}

type Option func(*Syncer)

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

func NewSyncer(api API, opts ...Option) *Syncer {
	s := &Syncer{api: api, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnAdopt registers fn to run after any client adopts a snapshot
func (s *Syncer) OnAdopt(fn AdoptFunc) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// For returns the cart client of one visitor
func (s *Syncer) For(visitor string, sessions Sessions) *Client {
	return &Client{
		syncer:   s,
		visitor:  visitor,
		sessions: sessions,
		current:  make(map[uint]*Snapshot),
	}
}

// shared runs fn once for all concurrent callers using the same key. The
// call itself is detached from the first caller's cancellation so one
// abandoned request cannot fail the others.
func (s *Syncer) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (s *Syncer) notify(visitor string, snap *Snapshot) {
	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(visitor, snap)
	}
}

// Client synchronizes one visitor's carts, one per shop.
type Client struct {
	syncer   *Syncer
	visitor  string
	sessions Sessions

	mu      sync.RWMutex
	current map[uint]*Snapshot
	// accepted mutations; a read started before one is never adopted
	generation uint64
}

// Scope turns a shop id into the session scope key; 0 is the global scope.
func Scope(shopID uint) string {
	if shopID == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(shopID), 10)
}

// SessionID returns (creating if needed) the session id used for shopID
func (c *Client) SessionID(ctx context.Context, shopID uint) string {
	return c.sessions.GetOrCreateSessionID(ctx, Scope(shopID))
}

// Current returns the last adopted snapshot for shopID
func (c *Client) Current(shopID uint) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.current[shopID]
	return snap, ok
}

// AddItem adds quantity units of a product with the given variant choices
func (c *Client) AddItem(ctx context.Context, shopID, productID uint, quantity int, variants map[string]string) (*Ack, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if productID == 0 {
		return nil, ErrInvalidProduct
	}

	sessionID := c.SessionID(ctx, shopID)
	logger.Info("Adding item to cart", logger.Fields{
		"session_id": sessionID,
		"shop_id":    shopID,
		"product_id": productID,
		"quantity":   quantity,
		"variants":   variants,
	})

	key := fmt.Sprintf("add|%s|%d|%d|%d|%s", sessionID, shopID, productID, quantity, variantKey(variants))
	val, shared, err := c.syncer.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.syncer.api.AddToCart(ctx, marche.AddToCartRequest{
			SessionID:        sessionID,
			ShopID:           shopID,
			ProductID:        productID,
			Quantity:         quantity,
			SelectedVariants: variants,
		})
	})
	if err != nil {
		logger.Warn("Add to cart rejected", logger.Fields{
			"session_id": sessionID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	if shared {
		logger.Debug("Duplicate add to cart coalesced", logger.Fields{
			"session_id": sessionID,
			"product_id": productID,
		})
	}

	c.mutated()

	resp := val.(*marche.CartLineResponse)
	return c.acknowledge(ctx, shopID, resp.Message, resp.Line), nil
}

// FetchCart reads the cart for shopID (0 for every shop) and adopts it.
// Reads only join reads started after the same mutations, and a read that a
// mutation overtook is returned but not adopted.
func (c *Client) FetchCart(ctx context.Context, shopID uint) (*Snapshot, error) {
	sessionID := c.SessionID(ctx, shopID)
	gen := c.currentGeneration()

	key := fmt.Sprintf("get|%s|%d|%d", sessionID, shopID, gen)
	val, _, err := c.syncer.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.syncer.api.GetCart(ctx, sessionID, shopID)
	})
	if err != nil {
		logger.Warn("Failed to fetch cart", logger.Fields{
			"session_id": sessionID,
			"shop_id":    shopID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("fetch cart: %w", err)
	}

	snap := Reconcile(sessionID, shopID, val.(*marche.CartResponse), c.syncer.now())
	if !snap.Advisories.Empty() {
		logger.Info("Server corrected cart", logger.Fields{
			"session_id": sessionID,
			"shop_id":    shopID,
			"removed":    len(snap.Advisories.RemovedItems),
			"adjusted":   len(snap.Advisories.QuantityAdjustments),
		})
	}
	if !c.adoptAt(shopID, snap, gen) {
		logger.Debug("Cart read overtaken by a mutation, not adopted", logger.Fields{
			"session_id": sessionID,
			"shop_id":    shopID,
		})
	}
	return snap, nil
}

// UpdateQuantity sets the quantity of a cart line. Quantities below one are
// rejected before any request is made; use RemoveItem instead.
func (c *Client) UpdateQuantity(ctx context.Context, shopID, itemID uint, quantity int) (*Ack, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if itemID == 0 {
		return nil, ErrInvalidItem
	}

	sessionID, err := c.requireLine(ctx, shopID, itemID)
	if err != nil {
		return nil, err
	}

	logger.Info("Updating cart item quantity", logger.Fields{
		"session_id":   sessionID,
		"shop_id":      shopID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	key := fmt.Sprintf("qty|%s|%d|%d", sessionID, itemID, quantity)
	val, _, err := c.syncer.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.syncer.api.UpdateCartQuantity(ctx, itemID, quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("update cart quantity: %w", err)
	}
	c.mutated()

	resp := val.(*marche.CartLineResponse)
	return c.acknowledge(ctx, shopID, resp.Message, resp.Line), nil
}

// RemoveItem deletes one cart line
func (c *Client) RemoveItem(ctx context.Context, shopID, itemID uint) (*Ack, error) {
	if itemID == 0 {
		return nil, ErrInvalidItem
	}

	sessionID, err := c.requireLine(ctx, shopID, itemID)
	if err != nil {
		return nil, err
	}

	logger.Info("Removing cart item", logger.Fields{
		"session_id":   sessionID,
		"shop_id":      shopID,
		"cart_item_id": itemID,
	})

	key := fmt.Sprintf("del|%s|%d", sessionID, itemID)
	val, _, err := c.syncer.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.syncer.api.RemoveCartLine(ctx, itemID)
	})
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	c.mutated()

	return c.acknowledge(ctx, shopID, val.(*marche.Ack).Message, nil), nil
}

// ClearCart empties the session cart, for one shop or (0) for all
func (c *Client) ClearCart(ctx context.Context, shopID uint) (*Ack, error) {
	sessionID := c.SessionID(ctx, shopID)

	logger.Info("Clearing cart", logger.Fields{
		"session_id": sessionID,
		"shop_id":    shopID,
	})

	key := fmt.Sprintf("clear|%s|%d", sessionID, shopID)
	val, _, err := c.syncer.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.syncer.api.ClearCart(ctx, sessionID, shopID)
	})
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	c.mutated()

	return c.acknowledge(ctx, shopID, val.(*marche.Ack).Message, nil), nil
}

// acknowledge reads the cart back after a successful mutation. A failed read
// back does not undo the mutation; the ack is returned without snapshot.
func (c *Client) acknowledge(ctx context.Context, shopID uint, message string, line *marche.CartLine) *Ack {
	ack := &Ack{Message: message, Line: line}

	snap, err := c.FetchCart(ctx, shopID)
	if err != nil {
		logger.Warn("Cart read back after mutation failed", logger.Fields{
			"shop_id": shopID,
			"error":   err.Error(),
		})
		c.Forget(shopID)
		return ack
	}
	ack.Snapshot = snap
	return ack
}

// requireLine checks that itemID belongs to the visitor's session for
// shopID, reading the cart when the last snapshot does not show it. Line ids
// are global on the API, so this is what keeps one visitor off another's cart.
func (c *Client) requireLine(ctx context.Context, shopID, itemID uint) (string, error) {
	sessionID := c.SessionID(ctx, shopID)

	if snap, ok := c.Current(shopID); ok && snap.SessionID == sessionID {
		if _, found := snap.Line(itemID); found {
			return sessionID, nil
		}
	}

	snap, err := c.FetchCart(ctx, shopID)
	if err != nil {
		return "", err
	}
	if _, found := snap.Line(itemID); !found {
		logger.Warn("Cart item not in the visitor's cart", logger.Fields{
			"session_id":   sessionID,
			"shop_id":      shopID,
			"cart_item_id": itemID,
		})
		return "", ErrItemNotInCart
	}
	return sessionID, nil
}

func (c *Client) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// mutated records a mutation the API accepted
func (c *Client) mutated() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
}

// adoptAt adopts snap unless a mutation was accepted after generation gen
func (c *Client) adoptAt(shopID uint, snap *Snapshot, gen uint64) bool {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return false
	}
	c.current[shopID] = snap
	c.mu.Unlock()
	c.syncer.notify(c.visitor, snap)
	return true
}

// Forget drops the snapshot of shopID, e.g. once it is known to be stale
func (c *Client) Forget(shopID uint) {
	c.mu.Lock()
	delete(c.current, shopID)
	c.mu.Unlock()
}

func variantKey(variants map[string]string) string {
	if len(variants) == 0 {
		return ""
	}
	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(variants[k])
		b.WriteByte(';')
	}
	return b.String()
}
