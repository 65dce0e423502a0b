package marche

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type shopEnvelope struct {
	Success bool  `json:"success"`
	Data    *Shop `json:"data"`
}

type shopListEnvelope struct {
	Success bool   `json:"success"`
	Data    []Shop `json:"data"`
}

type productEnvelope struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
}

// GetShopBySlug reads GET /boutiques/slug/{slug}
func (c *Client) GetShopBySlug(ctx context.Context, slug string) (*Shop, error) {
	var resp shopEnvelope
	if err := c.do(ctx, http.MethodGet, "/boutiques/slug/"+url.PathEscape(slug), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "boutique introuvable", Method: http.MethodGet, Path: "/boutiques/slug/" + slug}
	}
	return resp.Data, nil
}

// GetShop reads GET /boutiques/{id}
func (c *Client) GetShop(ctx context.Context, shopID uint) (*Shop, error) {
	path := fmt.Sprintf("/boutiques/%d", shopID)
	var resp shopEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "boutique introuvable", Method: http.MethodGet, Path: path}
	}
	return resp.Data, nil
}

// ListOwnedShops reads GET /boutiques/proprietaire for the seller in ctx
func (c *Client) ListOwnedShops(ctx context.Context) ([]Shop, error) {
	var resp shopListEnvelope
	if err := c.do(ctx, http.MethodGet, "/boutiques/proprietaire", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListShopProducts reads GET /produits/boutique/{shopID}
func (c *Client) ListShopProducts(ctx context.Context, shopID uint, q ProductQuery) (*ProductList, error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("recherche", q.Search)
	}
	if q.CategoryID != 0 {
		query.Set("categorie_id", strconv.FormatUint(uint64(q.CategoryID), 10))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp ProductList
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/produits/boutique/%d", shopID), query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProduct reads GET /produits/{id}
func (c *Client) GetProduct(ctx context.Context, productID uint) (*Product, error) {
	path := fmt.Sprintf("/produits/%d", productID)
	var resp productEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "produit introuvable", Method: http.MethodGet, Path: path}
	}
	return resp.Data, nil
}
