package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

var ErrInvalidSlug = errors.New("invalid shop slug")

const shopCacheKeyPrefix = "shop_by_slug:"

// CatalogAPI is the read-only part of the Marché241 client
type CatalogAPI interface {
	GetShopBySlug(ctx context.Context, slug string) (*marche.Shop, error)
	ListShopProducts(ctx context.Context, shopID uint, q marche.ProductQuery) (*marche.ProductList, error)
	GetProduct(ctx context.Context, productID uint) (*marche.Product, error)
}

type CatalogService interface {
	GetShop(ctx context.Context, slug string) (*marche.Shop, error)
	ListProducts(ctx context.Context, slug string, q marche.ProductQuery) (*marche.Shop, *marche.ProductList, error)
	GetProduct(ctx context.Context, productID uint) (*marche.Product, error)
}

type catalogService struct {
	api      CatalogAPI
	cache    kvstore.Store
	cacheTTL time.Duration
}

// NewCatalogService caches shop profiles by slug for cacheTTL; every product
// read goes to the API since stock changes constantly.
func NewCatalogService(api CatalogAPI, cache kvstore.Store, cacheTTL time.Duration) CatalogService {
	return &catalogService{api: api, cache: cache, cacheTTL: cacheTTL}
}

func (s *catalogService) GetShop(ctx context.Context, slug string) (*marche.Shop, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" || strings.ContainsAny(slug, "/?#") {
		return nil, ErrInvalidSlug
	}

	if shop, ok := s.cachedShop(ctx, slug); ok {
		return shop, nil
	}

	shop, err := s.api.GetShopBySlug(ctx, slug)
	if err != nil {
		logger.Warn("Failed to fetch shop", logger.Fields{
			"slug":  slug,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("get shop: %w", err)
	}

	s.cacheShop(ctx, slug, shop)
	return shop, nil
}

func (s *catalogService) ListProducts(ctx context.Context, slug string, q marche.ProductQuery) (*marche.Shop, *marche.ProductList, error) {
	shop, err := s.GetShop(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Listing shop products", logger.Fields{
		"shop_id": shop.ID,
		"search":  q.Search,
		"page":    q.Page,
	})

	products, err := s.api.ListShopProducts(ctx, shop.ID, q)
	if err != nil {
		return nil, nil, fmt.Errorf("list products: %w", err)
	}
	return shop, products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID uint) (*marche.Product, error) {
	product, err := s.api.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (s *catalogService) cachedShop(ctx context.Context, slug string) (*marche.Shop, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, shopCacheKeyPrefix+slug)
	if err != nil || !ok {
		return nil, false
	}
	var shop marche.Shop
	if err := json.Unmarshal([]byte(raw), &shop); err != nil {
		return nil, false
	}
	return &shop, true
}

func (s *catalogService) cacheShop(ctx context.Context, slug string, shop *marche.Shop) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(shop)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, shopCacheKeyPrefix+slug, string(raw), s.cacheTTL); err != nil {
		logger.Debug("Failed to cache shop", logger.Fields{"slug": slug, "error": err.Error()})
	}
}
