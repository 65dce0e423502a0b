package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/app/controller"
	"github.com/marche241/storefront-gateway/internal/app/service"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/internal/router"
	"github.com/marche241/storefront-gateway/internal/scheduler"
	"github.com/marche241/storefront-gateway/internal/sessionstore"
	"github.com/marche241/storefront-gateway/internal/storage"
	ws "github.com/marche241/storefront-gateway/internal/websocket"
	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting Marché241 storefront gateway", map[string]interface{}{
		"environment":   cfg.Server.Environment,
		"port":          cfg.Server.Port,
		"log_level":     logLevel,
		"api_url":       cfg.API.BaseURL,
		"session_store": cfg.Session.Store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Visitor sessions, cooldowns and the shop cache share one store
	store, closeStore, err := sessionstore.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open session store", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Failed to close session store", err)
		}
	}()

	api, err := marche.NewClient(marche.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		logger.Fatal("Failed to create Marché241 API client", err)
	}

	// Live cart feed
	hub := ws.NewHub()
	go hub.Run(ctx)

	syncer := cart.NewSyncer(api)
	syncer.OnAdopt(hub.PublishCart)

	// Initialize services
	cartService := service.NewCartService(syncer, session.NewManager(store))
	orderService := service.NewOrderService(api, cartService)
	exportService := service.NewOrderExportService(orderService)
	catalogService := service.NewCatalogService(api, store, cfg.API.ShopCacheTTL)
	authService := service.NewAuthService(api, store, cfg.Auth.ResendCooldown)
	sellerService := service.NewSellerService(api)

	// Initialize controllers
	r := router.NewRouter(
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService, exportService, cartService),
		controller.NewCatalogController(catalogService),
		controller.NewAuthController(authService, cfg.Auth, cfg.Session),
		controller.NewSellerController(sellerService),
		controller.NewUploadController(storage.NewS3Storage(ctx, cfg.S3), sellerService),
		controller.NewCartSocketController(hub, cartService, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.Auth.TokenCookie),
		cfg,
	)

	sweeper := scheduler.NewSessionSweeper(cfg.Scheduler.SweepSpec, store, cartService, cfg.Scheduler.CartIdle)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start session sweeper", err)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
