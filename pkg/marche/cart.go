package marche

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AddToCart submits POST /panier
func (c *Client) AddToCart(ctx context.Context, req AddToCartRequest) (*CartLineResponse, error) {
	if req.SelectedVariants == nil {
		req.SelectedVariants = map[string]string{}
	}
	var resp CartLineResponse
	if err := c.do(ctx, http.MethodPost, "/panier", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCart reads GET /panier/{session_id}, optionally narrowed to one shop
func (c *Client) GetCart(ctx context.Context, sessionID string, shopID uint) (*CartResponse, error) {
	var query url.Values
	if shopID != 0 {
		query = url.Values{"boutique_id": {strconv.FormatUint(uint64(shopID), 10)}}
	}
	var resp CartResponse
	if err := c.do(ctx, http.MethodGet, "/panier/"+url.PathEscape(sessionID), query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateCartQuantity submits PATCH /panier/{id}/quantite
func (c *Client) UpdateCartQuantity(ctx context.Context, itemID uint, quantity int) (*CartLineResponse, error) {
	body := map[string]int{"quantite": quantity}
	var resp CartLineResponse
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/panier/%d/quantite", itemID), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveCartLine submits DELETE /panier/{id}
func (c *Client) RemoveCartLine(ctx context.Context, itemID uint) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/panier/%d", itemID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCart submits DELETE /panier?session_id=..., optionally for one shop
func (c *Client) ClearCart(ctx context.Context, sessionID string, shopID uint) (*Ack, error) {
	query := url.Values{"session_id": {sessionID}}
	if shopID != 0 {
		query.Set("boutique_id", strconv.FormatUint(uint64(shopID), 10))
	}
	var resp Ack
	if err := c.do(ctx, http.MethodDelete, "/panier", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
