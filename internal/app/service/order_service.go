package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/util"
)

var (
	ErrShopRequired       = errors.New("a shop is required to place an order")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCartChanged        = errors.New("cart was corrected by the server, review before ordering")
	ErrInvalidCustomer    = errors.New("customer name, phone and delivery address are required")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// PaymentOnDelivery is used when the visitor did not pick a payment method
const PaymentOnDelivery = "paiement_a_la_livraison"

// OrderAPI is the part of the Marché241 client handling orders
type OrderAPI interface {
	CreateOrder(ctx context.Context, req marche.CreateOrderRequest) (*marche.Order, error)
	ListShopOrders(ctx context.Context, shopID uint, status string) ([]marche.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*marche.Order, error)
}

// CheckoutInput is what the visitor fills in at checkout
type CheckoutInput struct {
	Customer      marche.Customer
	PaymentMethod string
	Notes         string
}

type OrderService interface {
	Checkout(ctx context.Context, visitor string, shopID uint, input CheckoutInput) (*marche.Order, error)
	ListShopOrders(ctx context.Context, shopID uint, status string) ([]marche.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*marche.Order, error)
}

type orderService struct {
	api   OrderAPI
	carts CartService
}

func NewOrderService(api OrderAPI, carts CartService) OrderService {
	return &orderService{api: api, carts: carts}
}

// Checkout turns the visitor's cart for shopID into an order. The cart is
// read back first; if the server corrected it on that read the order is not
// placed so the visitor can see what changed. On success the session is
// abandoned so the next purchase starts a fresh cart.
func (s *orderService) Checkout(ctx context.Context, visitor string, shopID uint, input CheckoutInput) (*marche.Order, error) {
	if shopID == 0 {
		return nil, ErrShopRequired
	}
	customer, err := normalizeCustomer(input.Customer)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting checkout", logger.Fields{
		"visitor_id": visitor,
		"shop_id":    shopID,
	})

	client := s.carts.Cart(visitor)
	snap, err := client.FetchCart(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if len(snap.Lines) == 0 {
		logger.Warn("Checkout attempted with empty cart", logger.Fields{
			"visitor_id": visitor,
			"shop_id":    shopID,
		})
		return nil, ErrEmptyCart
	}
	if !snap.Advisories.Empty() {
		return nil, ErrCartChanged
	}

	payment := input.PaymentMethod
	if payment == "" {
		payment = PaymentOnDelivery
	}

	order, err := s.api.CreateOrder(ctx, marche.CreateOrderRequest{
		SessionID:     snap.SessionID,
		ShopID:        shopID,
		Customer:      customer,
		PaymentMethod: payment,
		Notes:         strings.TrimSpace(input.Notes),
	})
	if err != nil {
		logger.Warn("Order creation rejected", logger.Fields{
			"visitor_id": visitor,
			"shop_id":    shopID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if err := s.carts.ResetSession(ctx, visitor, shopID); err != nil {
		logger.Warn("Order placed but cart session was not reset", logger.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	logger.Info("Order placed", logger.Fields{
		"visitor_id":   visitor,
		"shop_id":      shopID,
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.Total.String(),
	})
	return order, nil
}

func (s *orderService) ListShopOrders(ctx context.Context, shopID uint, status string) ([]marche.Order, error) {
	if status != "" && !marche.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	logger.Debug("Listing shop orders", logger.Fields{
		"shop_id": shopID,
		"status":  status,
	})

	orders, err := s.api.ListShopOrders(ctx, shopID, status)
	if err != nil {
		return nil, fmt.Errorf("list shop orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*marche.Order, error) {
	if !marche.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	logger.Info("Updating order status", logger.Fields{
		"order_id": orderID,
		"status":   status,
	})

	order, err := s.api.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}

func normalizeCustomer(c marche.Customer) (marche.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	if c.Name == "" || c.Address == "" {
		return c, ErrInvalidCustomer
	}

	phone, err := util.NormalizePhone(c.Phone)
	if err != nil {
		return c, ErrInvalidCustomer
	}
	c.Phone = phone

	if c.Email != "" {
		email, err := util.NormalizeEmail(c.Email)
		if err != nil {
			return c, ErrInvalidCustomer
		}
		c.Email = email
	}
	return c, nil
}
