package marche

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type orderEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *Order `json:"data"`
}

type orderListEnvelope struct {
	Success bool    `json:"success"`
	Data    []Order `json:"data"`
}

// CreateOrder submits POST /commandes, turning the session cart into an order
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var resp orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/commandes", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("create order: response carried no order")
	}
	return resp.Data, nil
}

// ListShopOrders reads GET /commandes/boutique/{shopID} for the seller in ctx.
// An empty status lists every order.
func (c *Client) ListShopOrders(ctx context.Context, shopID uint, status string) ([]Order, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"statut": {status}}
	}
	var resp orderListEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/commandes/boutique/%d", shopID), query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateOrderStatus submits PATCH /commandes/{id}/statut
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*Order, error) {
	body := map[string]string{"statut": status}
	var resp orderEnvelope
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/commandes/%d/statut", orderID), nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
