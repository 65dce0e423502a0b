package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/marche/marchetest"
	"github.com/marche241/storefront-gateway/pkg/session"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	api      *marchetest.Server
	client   *marche.Client
	store    *kvstore.MemoryStore
	sessions *session.Manager
	carts    *cartService
	clock    *testClock
	shop     marche.Shop
	wax      marche.Product
	basket   marche.Product
}

func setupServiceTest(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)}
	api := marchetest.NewServer()
	t.Cleanup(api.Close)
	api.SetClock(clock.Now)

	store := kvstore.NewMemoryStore().WithClock(clock.Now)
	sessions := session.NewManager(store, session.WithClock(clock.Now))
	client := api.Client()

	f := &fixture{
		api:      api,
		client:   client,
		store:    store,
		sessions: sessions,
		carts:    newCartService(cart.NewSyncer(client, cart.WithClock(clock.Now)), sessions, clock.Now),
		clock:    clock,
	}
	f.shop = api.AddShop(marche.Shop{Name: "Chez Awa", Slug: "chez-awa", OwnerID: 900})
	f.wax = api.AddProduct(marche.Product{ShopID: f.shop.ID, Name: "Pagne wax", Price: decimal.NewFromInt(12000), StockAvailable: 10})
	f.basket = api.AddProduct(marche.Product{ShopID: f.shop.ID, Name: "Panier tressé", Price: decimal.NewFromInt(8000), PromoPrice: decimal.NewFromInt(6500), StockAvailable: 3})
	return f
}

func TestCartService_CartIsStablePerVisitor(t *testing.T) {
	f := setupServiceTest(t)

	a1 := f.carts.Cart("visitor-a")
	a2 := f.carts.Cart("visitor-a")
	b := f.carts.Cart("visitor-b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
}

func TestCartService_VisitorsDoNotShareSessions(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.Cart("visitor-a").AddItem(ctx, f.shop.ID, f.wax.ID, 2, nil)
	require.NoError(t, err)

	snapA, err := f.carts.Cart("visitor-a").FetchCart(ctx, f.shop.ID)
	require.NoError(t, err)
	snapB, err := f.carts.Cart("visitor-b").FetchCart(ctx, f.shop.ID)
	require.NoError(t, err)

	assert.NotEqual(t, snapA.SessionID, snapB.SessionID)
	assert.Len(t, snapA.Lines, 1)
	assert.Empty(t, snapB.Lines)
}

func TestCartService_SessionStatus(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	status := f.carts.SessionStatus(ctx, "visitor-a", f.shop.ID)
	assert.False(t, status.Valid)
	assert.Nil(t, status.ExpiresAt)

	f.carts.Cart("visitor-a").SessionID(ctx, f.shop.ID)

	status = f.carts.SessionStatus(ctx, "visitor-a", f.shop.ID)
	assert.True(t, status.Valid)
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, status.ExpiresAt.Equal(time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)))
}

func TestCartService_ResetSession(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	client := f.carts.Cart("visitor-a")

	ack, err := client.AddItem(ctx, f.shop.ID, f.wax.ID, 1, nil)
	require.NoError(t, err)
	first := ack.Snapshot.SessionID

	require.NoError(t, f.carts.ResetSession(ctx, "visitor-a", f.shop.ID))

	_, ok := client.Current(f.shop.ID)
	assert.False(t, ok)
	assert.False(t, f.carts.SessionStatus(ctx, "visitor-a", f.shop.ID).Valid)

	snap, err := client.FetchCart(ctx, f.shop.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, snap.SessionID)
	assert.Empty(t, snap.Lines)

	// the abandoned server cart is untouched
	assert.Len(t, f.api.Lines(first), 1)
}

func TestCartService_EvictIdle(t *testing.T) {
	f := setupServiceTest(t)

	f.carts.Cart("visitor-a")
	f.clock.Advance(20 * time.Minute)
	kept := f.carts.Cart("visitor-b")

	assert.Equal(t, 1, f.carts.EvictIdle(15*time.Minute))
	assert.Same(t, kept, f.carts.Cart("visitor-b"))
	assert.Equal(t, 0, f.carts.EvictIdle(15*time.Minute))
}
