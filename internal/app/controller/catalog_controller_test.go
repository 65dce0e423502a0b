package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogController_GetShop(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, "/api/v1/boutiques/chez-awa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chez Awa", decode(t, w)["boutique"].(map[string]interface{})["nom"])

	// served from the cache the second time
	w = env.perform(t, http.MethodGet, "/api/v1/boutiques/Chez-Awa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.api.Calls("GET /api/boutiques/slug/:slug"))

	w = env.perform(t, http.MethodGet, "/api/v1/boutiques/inconnue", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SHOP_NOT_FOUND", decode(t, w)["error"])
}

func TestCatalogController_ListProducts(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, "/api/v1/boutiques/chez-awa/produits", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decode(t, w)
	assert.Equal(t, float64(2), response["total"])
	assert.Len(t, response["produits"], 2)

	w = env.perform(t, http.MethodGet, "/api/v1/boutiques/chez-awa/produits?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", decode(t, w)["error"])
}

func TestCatalogController_GetProduct(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, fmt.Sprintf("/api/v1/produits/%d", env.basket.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Panier tressé", decode(t, w)["produit"].(map[string]interface{})["nom"])

	w = env.perform(t, http.MethodGet, "/api/v1/produits/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, w)["error"])

	w = env.perform(t, http.MethodGet, "/api/v1/produits/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
