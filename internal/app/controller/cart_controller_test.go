package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) cartPath(suffix string) string {
	return fmt.Sprintf("/api/v1/panier/%d%s", env.shop.ID, suffix)
}

func (env *testEnv) addWax(t *testing.T, quantity int) map[string]interface{} {
	t.Helper()
	w := env.perform(t, http.MethodPost, env.cartPath("/items"), map[string]interface{}{
		"produit_id": env.wax.ID,
		"quantite":   quantity,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func TestCartController_GetCart_Empty(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, env.cartPath(""), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	panier := response["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])
	assert.NotEmpty(t, panier["session_id"])
}

func TestCartController_AddItem_Success(t *testing.T) {
	env := setupControllerTest(t)

	response := env.addWax(t, 2)

	assert.Equal(t, true, response["a_jour"])
	panier := response["panier"].(map[string]interface{})
	assert.Equal(t, float64(2), panier["nombre_articles"])
	assert.Equal(t, "24000", panier["total"])

	item := response["panier_item"].(map[string]interface{})
	assert.Equal(t, float64(env.wax.ID), item["produit_id"])
}

func TestCartController_AddItem_Validation(t *testing.T) {
	env := setupControllerTest(t)

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode string
	}{
		{"zero quantity", env.cartPath("/items"), map[string]interface{}{"produit_id": env.wax.ID, "quantite": 0}, "CART_INVALID_QUANTITY"},
		{"missing product", env.cartPath("/items"), map[string]interface{}{"quantite": 1}, "VALIDATION_INVALID_INPUT"},
		{"malformed body", env.cartPath("/items"), "{", "VALIDATION_INVALID_INPUT"},
		{"bad shop id", "/api/v1/panier/abc/items", map[string]interface{}{"produit_id": env.wax.ID, "quantite": 1}, "VALIDATION_INVALID_ID"},
		{"all shops scope", "/api/v1/panier/0/items", map[string]interface{}{"produit_id": env.wax.ID, "quantite": 1}, "VALIDATION_INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.perform(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error"])
		})
	}
	assert.Zero(t, env.api.Calls("POST /api/panier"))
}

func TestCartController_AddItem_InsufficientStock(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodPost, env.cartPath("/items"), map[string]interface{}{
		"produit_id": env.basket.ID,
		"quantite":   5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", response["error"])
	assert.Contains(t, response["message"], "Stock insuffisant")
}

func TestCartController_AddItem_ReadBackFails(t *testing.T) {
	env := setupControllerTest(t)
	env.api.FailNext("GET /api/panier/:id", http.StatusInternalServerError)

	response := env.addWax(t, 1)

	assert.Equal(t, false, response["a_jour"])
	assert.Nil(t, response["panier"])
	assert.NotNil(t, response["panier_item"])
}

func TestCartController_UpdateAndRemoveItem(t *testing.T) {
	env := setupControllerTest(t)
	added := env.addWax(t, 1)
	itemID := uint(added["panier_item"].(map[string]interface{})["id"].(float64))
	itemPath := env.cartPath(fmt.Sprintf("/items/%d", itemID))

	w := env.perform(t, http.MethodPatch, itemPath, map[string]interface{}{"quantite": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(3), panier["nombre_articles"])
	assert.Equal(t, "36000", panier["total"])

	w = env.perform(t, http.MethodPatch, itemPath, map[string]interface{}{"quantite": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CART_INVALID_QUANTITY", decode(t, w)["error"])

	w = env.perform(t, http.MethodDelete, itemPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	panier = decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])

	w = env.perform(t, http.MethodDelete, itemPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", decode(t, w)["error"])
}

func TestCartController_ClearCart(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 2)

	w := env.perform(t, http.MethodDelete, env.cartPath(""), nil)

	require.Equal(t, http.StatusOK, w.Code)
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])
}

func TestCartController_VisitorsAreIsolated(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 2)

	w := env.perform(t, http.MethodGet, env.cartPath(""), nil, asVisitor(otherVisitor))

	require.Equal(t, http.StatusOK, w.Code)
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])
}

func TestCartController_OtherVisitorCannotTouchItems(t *testing.T) {
	env := setupControllerTest(t)
	added := env.addWax(t, 3)
	itemID := uint(added["panier_item"].(map[string]interface{})["id"].(float64))
	itemPath := env.cartPath(fmt.Sprintf("/items/%d", itemID))

	w := env.perform(t, http.MethodPatch, itemPath, map[string]interface{}{"quantite": 1}, asVisitor(otherVisitor))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", decode(t, w)["error"])

	w = env.perform(t, http.MethodDelete, itemPath, nil, asVisitor(otherVisitor))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", decode(t, w)["error"])

	assert.Zero(t, env.api.Calls("PATCH /api/panier/:id/quantite"))
	assert.Zero(t, env.api.Calls("DELETE /api/panier/:id"))

	w = env.perform(t, http.MethodGet, env.cartPath(""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(3), panier["nombre_articles"])
}

func TestCartController_Session(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, env.cartPath("/session"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["session"].(map[string]interface{})["valide"])

	env.addWax(t, 1)

	w = env.perform(t, http.MethodGet, env.cartPath("/session"), nil)
	status := decode(t, w)["session"].(map[string]interface{})
	assert.Equal(t, true, status["valide"])
	assert.NotEmpty(t, status["expire_le"])

	w = env.perform(t, http.MethodDelete, env.cartPath("/session"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.perform(t, http.MethodGet, env.cartPath("/session"), nil)
	assert.Equal(t, false, decode(t, w)["session"].(map[string]interface{})["valide"])

	// a fresh session starts with an empty cart
	w = env.perform(t, http.MethodGet, env.cartPath(""), nil)
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])
}

func TestCartController_APIUnavailable(t *testing.T) {
	env := setupControllerTest(t)
	env.api.FailNext("GET /api/panier/:id", http.StatusServiceUnavailable)

	w := env.perform(t, http.MethodGet, env.cartPath(""), nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "INTERNAL_EXTERNAL_API", decode(t, w)["error"])
}

func TestCartController_IssuesVisitorCookie(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, env.cartPath(""), nil, func(r *http.Request) {})

	require.Equal(t, http.StatusOK, w.Code)
	var issued string
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionConfig.VisitorCookie {
			issued = c.Value
		}
	}
	assert.NotEmpty(t, issued)
}

func TestCartController_RequiresVisitorMiddleware(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, fmt.Sprintf("/bare/panier/%d", env.shop.ID), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_CONFIG_ERROR", decode(t, w)["error"])
}
