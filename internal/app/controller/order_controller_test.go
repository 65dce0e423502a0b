package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validCustomer = map[string]interface{}{
	"nom":               "Mireille Ndong",
	"telephone":         "+241 07 71 23 45",
	"adresse_livraison": "Quartier Louis, Libreville",
}

func (env *testEnv) checkout(t *testing.T, customer map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	w := env.perform(t, http.MethodPost, env.cartPath("/commande"), map[string]interface{}{
		"client": customer,
	})
	return w.Code, decode(t, w)
}

func (env *testEnv) sellerPath(format string, args ...interface{}) string {
	return "/api/v1/vendeur" + fmt.Sprintf(format, args...)
}

func TestOrderController_Checkout_Success(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 2)

	code, response := env.checkout(t, validCustomer)

	require.Equal(t, http.StatusCreated, code, response)
	order := response["commande"].(map[string]interface{})
	assert.Equal(t, "25500", order["total"])
	assert.True(t, strings.HasPrefix(order["numero_commande"].(string), "CMD-"))
	assert.Equal(t, "+24107712345", order["client"].(map[string]interface{})["telephone"])

	// the next purchase starts from an empty cart
	w := env.perform(t, http.MethodGet, env.cartPath(""), nil)
	panier := decode(t, w)["panier"].(map[string]interface{})
	assert.Equal(t, float64(0), panier["nombre_articles"])
}

func TestOrderController_Checkout_EmptyCart(t *testing.T) {
	env := setupControllerTest(t)

	code, response := env.checkout(t, validCustomer)

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CART_EMPTY", response["error"])
	assert.Zero(t, env.api.Calls("POST /api/commandes"))
}

func TestOrderController_Checkout_InvalidCustomer(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 1)

	code, response := env.checkout(t, map[string]interface{}{
		"nom":               "Mireille",
		"telephone":         "12",
		"adresse_livraison": "Libreville",
	})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", response["error"])
	assert.Contains(t, response["fields"], "client")
}

func TestOrderController_Checkout_CartChanged(t *testing.T) {
	env := setupControllerTest(t)
	w := env.perform(t, http.MethodPost, env.cartPath("/items"), map[string]interface{}{
		"produit_id": env.basket.ID,
		"quantite":   3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	env.api.SetStock(env.basket.ID, 1)

	code, response := env.checkout(t, validCustomer)

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "RESOURCE_CONFLICT", response["error"])
	panier := response["panier"].(map[string]interface{})
	assert.Equal(t, float64(1), panier["nombre_articles"])
	assert.NotEmpty(t, panier["notifications"])
	assert.Zero(t, env.api.Calls("POST /api/commandes"))
}

func TestOrderController_SellerOrders(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 1)
	code, _ := env.checkout(t, validCustomer)
	require.Equal(t, http.StatusCreated, code)
	token := env.api.Token(sellerEmail)

	w := env.perform(t, http.MethodGet, env.sellerPath("/boutiques/%d/commandes", env.shop.ID), nil, withBearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decode(t, w)
	assert.Equal(t, float64(1), response["total"])
	order := response["commandes"].([]interface{})[0].(map[string]interface{})
	orderID := uint(order["id"].(float64))

	w = env.perform(t, http.MethodGet, env.sellerPath("/boutiques/%d/commandes?statut=perdue", env.shop.ID), nil, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_INVALID_STATUS", decode(t, w)["error"])

	w = env.perform(t, http.MethodPatch, env.sellerPath("/commandes/%d/statut", orderID), map[string]interface{}{"statut": "confirmee"}, withBearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmee", decode(t, w)["commande"].(map[string]interface{})["statut"])

	w = env.perform(t, http.MethodPatch, env.sellerPath("/commandes/%d/statut", orderID), map[string]interface{}{"statut": "perdue"}, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_SellerOrders_OtherShop(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, env.sellerPath("/boutiques/%d/commandes", env.shop.ID), nil, withBearer(env.api.Token(strangerEmail)))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_FORBIDDEN", decode(t, w)["error"])
}

func TestOrderController_SellerOrders_RequiresToken(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, env.sellerPath("/boutiques/%d/commandes", env.shop.ID), nil, func(r *http.Request) {})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderController_Export(t *testing.T) {
	env := setupControllerTest(t)
	env.addWax(t, 1)
	code, _ := env.checkout(t, validCustomer)
	require.Equal(t, http.StatusCreated, code)

	w := env.perform(t, http.MethodGet, env.sellerPath("/boutiques/%d/commandes/export", env.shop.ID), nil, withBearer(env.api.Token(sellerEmail)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("commandes-boutique-%d-", env.shop.ID))
	// xlsx files are zip archives
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}
