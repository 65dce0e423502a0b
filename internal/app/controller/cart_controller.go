package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/pkg/cart"
)

type CartController struct {
	carts service.CartService
}

func NewCartController(carts service.CartService) *CartController {
	return &CartController{
		carts: carts,
	}
}

type AddToCartRequest struct {
	ProductID        uint              `json:"produit_id" binding:"required"`
	Quantity         int               `json:"quantite"`
	SelectedVariants map[string]string `json:"variants_selectionnes"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantite"`
}

// GetCart returns the visitor's cart for a shop, 0 meaning every shop
// GET /api/v1/panier/:shopID
func (ctrl *CartController) GetCart(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}

	snap, err := ctrl.carts.Cart(visitor).FetchCart(c.Request.Context(), shopID)
	if err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"panier":  snap,
	})
}

// AddItem adds a product to the cart
// POST /api/v1/panier/:shopID/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", false)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Produit et quantité requis")
		return
	}

	ack, err := ctrl.carts.Cart(visitor).AddItem(c.Request.Context(), shopID, req.ProductID, req.Quantity, req.SelectedVariants)
	if err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	respondAck(c, http.StatusCreated, ack)
}

// UpdateItem changes the quantity of a cart line
// PATCH /api/v1/panier/:shopID/items/:itemID
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemID", false)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Quantité requise")
		return
	}

	ack, err := ctrl.carts.Cart(visitor).UpdateQuantity(c.Request.Context(), shopID, itemID, req.Quantity)
	if err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	respondAck(c, http.StatusOK, ack)
}

// RemoveItem deletes a cart line
// DELETE /api/v1/panier/:shopID/items/:itemID
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemID", false)
	if !ok {
		return
	}

	ack, err := ctrl.carts.Cart(visitor).RemoveItem(c.Request.Context(), shopID, itemID)
	if err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	respondAck(c, http.StatusOK, ack)
}

// ClearCart empties the cart of a shop, 0 meaning every shop
// DELETE /api/v1/panier/:shopID
func (ctrl *CartController) ClearCart(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}

	ack, err := ctrl.carts.Cart(visitor).ClearCart(c.Request.Context(), shopID)
	if err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	respondAck(c, http.StatusOK, ack)
}

// GetSession reports whether the visitor holds a live session for a shop
// GET /api/v1/panier/:shopID/session
func (ctrl *CartController) GetSession(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": ctrl.carts.SessionStatus(c.Request.Context(), visitor, shopID),
	})
}

// ResetSession abandons the visitor's session for a shop
// DELETE /api/v1/panier/:shopID/session
func (ctrl *CartController) ResetSession(c *gin.Context) {
	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", true)
	if !ok {
		return
	}

	if err := ctrl.carts.ResetSession(c.Request.Context(), visitor, shopID); err != nil {
		apperrors.RespondAPIError(c, err, "cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Nouvelle session de panier démarrée",
	})
}

// respondAck answers a mutation. A nil snapshot means the mutation went
// through but the cart could not be read back; the client should refetch.
func respondAck(c *gin.Context, status int, ack *cart.Ack) {
	c.JSON(status, gin.H{
		"success":     true,
		"message":     ack.Message,
		"panier_item": ack.Line,
		"panier":      ack.Snapshot,
		"a_jour":      ack.Snapshot != nil,
	})
}
