package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/app/service"
	"github.com/marche241/storefront-gateway/internal/middleware"
	ws "github.com/marche241/storefront-gateway/internal/websocket"
	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/marche/marchetest"
	"github.com/marche241/storefront-gateway/pkg/session"
)

const (
	testVisitor     = "3f2b9c1e-8d4a-4e6b-9a7c-1d2e3f4a5b6c"
	otherVisitor    = "7a1c2d3e-4f5a-4b6c-8d7e-9f0a1b2c3d4e"
	testOrigin      = "http://localhost:5173"
	sellerEmail     = "awa@example.com"
	strangerEmail   = "koffi@example.com"
	sellerOwnerID   = 900
	strangerOwnerID = 901
)

var sessionConfig = config.SessionConfig{VisitorCookie: "m241_visitor"}

type testEnv struct {
	api    *marchetest.Server
	router *gin.Engine
	carts  service.CartService
	hub    *ws.Hub
	signer *fakeSigner
	shop   marche.Shop
	wax    marche.Product
	basket marche.Product
}

func setupControllerTest(t *testing.T) *testEnv {
	t.Helper()

	api := marchetest.NewServer()
	t.Cleanup(api.Close)
	client := api.Client()

	store := kvstore.NewMemoryStore()
	sessions := session.NewManager(store)
	syncer := cart.NewSyncer(client)
	hub := ws.NewHub()
	syncer.OnAdopt(hub.PublishCart)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	carts := service.NewCartService(syncer, sessions)
	orders := service.NewOrderService(client, carts)
	sellers := service.NewSellerService(client)

	env := &testEnv{
		api:    api,
		carts:  carts,
		hub:    hub,
		signer: &fakeSigner{},
	}
	env.shop = api.AddShop(marche.Shop{Name: "Chez Awa", Slug: "chez-awa", OwnerID: sellerOwnerID})
	env.wax = api.AddProduct(marche.Product{ShopID: env.shop.ID, Name: "Pagne wax", Price: decimal.NewFromInt(12000), StockAvailable: 10})
	env.basket = api.AddProduct(marche.Product{ShopID: env.shop.ID, Name: "Panier tressé", Price: decimal.NewFromInt(8000), PromoPrice: decimal.NewFromInt(6500), StockAvailable: 3})
	api.AddSeller(sellerEmail, marche.User{ID: sellerOwnerID, Email: sellerEmail})
	api.AddSeller(strangerEmail, marche.User{ID: strangerOwnerID, Email: strangerEmail})

	cartCtrl := NewCartController(carts)
	orderCtrl := NewOrderController(orders, service.NewOrderExportService(orders), carts)
	authCtrl := NewAuthController(service.NewAuthService(client, store, time.Minute), config.AuthConfig{TokenCookie: "m241_token"}, sessionConfig)
	catalogCtrl := NewCatalogController(service.NewCatalogService(client, store, time.Minute))
	sellerCtrl := NewSellerController(sellers)
	uploadCtrl := NewUploadController(env.signer, sellers)
	socketCtrl := NewCartSocketController(hub, carts, []string{testOrigin})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/api/v1")

	storefront := v1.Group("", middleware.VisitorMiddleware(sessionConfig))
	storefront.GET("/panier/:shopID", cartCtrl.GetCart)
	storefront.DELETE("/panier/:shopID", cartCtrl.ClearCart)
	storefront.POST("/panier/:shopID/items", cartCtrl.AddItem)
	storefront.PATCH("/panier/:shopID/items/:itemID", cartCtrl.UpdateItem)
	storefront.DELETE("/panier/:shopID/items/:itemID", cartCtrl.RemoveItem)
	storefront.GET("/panier/:shopID/session", cartCtrl.GetSession)
	storefront.DELETE("/panier/:shopID/session", cartCtrl.ResetSession)
	storefront.POST("/panier/:shopID/commande", orderCtrl.Checkout)
	storefront.GET("/ws/panier", socketCtrl.Connect)

	v1.GET("/boutiques/:slug", catalogCtrl.GetShop)
	v1.GET("/boutiques/:slug/produits", catalogCtrl.ListProducts)
	v1.GET("/produits/:productID", catalogCtrl.GetProduct)

	v1.POST("/auth/code", authCtrl.RequestCode)
	v1.POST("/auth/verify", authCtrl.VerifyCode)
	v1.POST("/auth/logout", authCtrl.Logout)

	seller := v1.Group("/vendeur", middleware.NewAuthMiddleware("m241_token").Authenticate())
	seller.GET("/boutiques", sellerCtrl.ListShops)
	seller.GET("/boutiques/:shopID/commandes", orderCtrl.ListShopOrders)
	seller.GET("/boutiques/:shopID/commandes/export", orderCtrl.ExportShopOrders)
	seller.POST("/boutiques/:shopID/images", uploadCtrl.GeneratePresignedURL)
	seller.PATCH("/commandes/:orderID/statut", orderCtrl.UpdateOrderStatus)

	// no visitor middleware, to check the guard
	router.GET("/bare/panier/:shopID", cartCtrl.GetCart)

	env.router = router
	return env
}

type requestOption func(*http.Request)

func asVisitor(visitor string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionConfig.VisitorCookie, Value: visitor})
	}
}

func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// perform sends a request as testVisitor unless another option sets a cookie
func (env *testEnv) perform(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if len(opts) == 0 {
		opts = []requestOption{asVisitor(testVisitor)}
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}
