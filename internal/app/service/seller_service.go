package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

var ErrShopNotOwned = errors.New("shop does not belong to the seller")

// SellerAPI lists the shops of the seller whose token is in the context
type SellerAPI interface {
	ListOwnedShops(ctx context.Context) ([]marche.Shop, error)
}

type SellerService interface {
	OwnedShops(ctx context.Context) ([]marche.Shop, error)
	RequireShop(ctx context.Context, shopID uint) (*marche.Shop, error)
}

type sellerService struct {
	api SellerAPI
}

func NewSellerService(api SellerAPI) SellerService {
	return &sellerService{api: api}
}

func (s *sellerService) OwnedShops(ctx context.Context) ([]marche.Shop, error) {
	shops, err := s.api.ListOwnedShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owned shops: %w", err)
	}
	return shops, nil
}

// RequireShop returns shopID if the seller owns it. Calls that only touch the
// API are checked there; this guards what the gateway does on its own, such
// as signing uploads.
func (s *sellerService) RequireShop(ctx context.Context, shopID uint) (*marche.Shop, error) {
	shops, err := s.OwnedShops(ctx)
	if err != nil {
		return nil, err
	}
	for i := range shops {
		if shops[i].ID == shopID {
			return &shops[i], nil
		}
	}
	logger.Warn("Seller tried to act on a shop they do not own", logger.Fields{
		"shop_id": shopID,
	})
	return nil, ErrShopNotOwned
}
