package router

import (
	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/app/controller"
	"github.com/marche241/storefront-gateway/internal/middleware"
)

type Router struct {
	cartController       *controller.CartController
	orderController      *controller.OrderController
	catalogController    *controller.CatalogController
	authController       *controller.AuthController
	sellerController     *controller.SellerController
	uploadController     *controller.UploadController
	cartSocketController *controller.CartSocketController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	orderController *controller.OrderController,
	catalogController *controller.CatalogController,
	authController *controller.AuthController,
	sellerController *controller.SellerController,
	uploadController *controller.UploadController,
	cartSocketController *controller.CartSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:       cartController,
		orderController:      orderController,
		catalogController:    catalogController,
		authController:       authController,
		sellerController:     sellerController,
		uploadController:     uploadController,
		cartSocketController: cartSocketController,
		authMiddleware:       authMiddleware,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":        "healthy",
			"message":       "Marché241 storefront gateway is running",
			"session_store": r.config.Session.Store,
		})
	})

	v1 := router.Group("/api/v1")
	{
		boutiques := v1.Group("/boutiques")
		{
			boutiques.GET("/:slug", r.catalogController.GetShop)
			boutiques.GET("/:slug/produits", r.catalogController.ListProducts)
		}
		v1.GET("/produits/:productID", r.catalogController.GetProduct)

		// anonymous visitors, identified by cookie
		panier := v1.Group("/panier")
		panier.Use(middleware.VisitorMiddleware(r.config.Session))
		{
			panier.GET("/:shopID", r.cartController.GetCart)
			panier.DELETE("/:shopID", r.cartController.ClearCart)
			panier.POST("/:shopID/items", r.cartController.AddItem)
			panier.PATCH("/:shopID/items/:itemID", r.cartController.UpdateItem)
			panier.DELETE("/:shopID/items/:itemID", r.cartController.RemoveItem)
			panier.GET("/:shopID/session", r.cartController.GetSession)
			panier.DELETE("/:shopID/session", r.cartController.ResetSession)
			panier.POST("/:shopID/commande", r.orderController.Checkout)
		}
		v1.GET("/ws/panier", middleware.VisitorMiddleware(r.config.Session), r.cartSocketController.Connect)

		auth := v1.Group("/auth")
		{
			auth.POST("/code", r.authController.RequestCode)
			auth.POST("/verify", r.authController.VerifyCode)
			auth.POST("/logout", r.authController.Logout)
		}

		vendeur := v1.Group("/vendeur")
		vendeur.Use(r.authMiddleware.Authenticate())
		{
			vendeur.GET("/boutiques", r.sellerController.ListShops)
			vendeur.GET("/boutiques/:shopID/commandes", r.orderController.ListShopOrders)
			vendeur.GET("/boutiques/:shopID/commandes/export", r.orderController.ExportShopOrders)
			vendeur.POST("/boutiques/:shopID/images", r.uploadController.GeneratePresignedURL)
			vendeur.PATCH("/commandes/:orderID/statut", r.orderController.UpdateOrderStatus)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
