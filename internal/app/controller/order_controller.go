package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orders service.OrderService
	export service.OrderExportService
	carts  service.CartService
}

func NewOrderController(orders service.OrderService, export service.OrderExportService, carts service.CartService) *OrderController {
	return &OrderController{
		orders: orders,
		export: export,
		carts:  carts,
	}
}

type CheckoutRequest struct {
	Customer      marche.Customer `json:"client"`
	PaymentMethod string          `json:"methode_paiement"`
	Notes         string          `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"statut" binding:"required"`
}

// Checkout places an order with the visitor's cart for a shop
// POST /api/v1/panier/:shopID/commande
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}
	shopID, ok := parseIDParam(c, "shopID", false)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Informations de livraison invalides")
		return
	}

	order, err := ctrl.orders.Checkout(c.Request.Context(), visitor, shopID, service.CheckoutInput{
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCustomer):
			apperrors.RespondWithValidationError(c, map[string]string{
				"client": "Nom, téléphone et adresse de livraison sont requis",
			})
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.Conflict(c, apperrors.CartEmpty, "Votre panier est vide")
		case errors.Is(err, service.ErrCartChanged):
			// the corrected cart is already adopted by the visitor's client
			snap, _ := ctrl.carts.Cart(visitor).Current(shopID)
			c.JSON(http.StatusConflict, gin.H{
				"error":   apperrors.ResourceConflict,
				"message": "Votre panier a été mis à jour. Vérifiez-le avant de commander",
				"panier":  snap,
			})
		default:
			apperrors.RespondAPIError(c, err, "order")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Commande enregistrée",
		"commande": order,
	})
}

// ListShopOrders returns the orders of a seller's shop
// GET /api/v1/vendeur/boutiques/:shopID/commandes?statut=
func (ctrl *OrderController) ListShopOrders(c *gin.Context) {
	shopID, ok := parseIDParam(c, "shopID", false)
	if !ok {
		return
	}

	orders, err := ctrl.orders.ListShopOrders(c.Request.Context(), shopID, c.Query("statut"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Statut de commande inconnu")
			return
		}
		apperrors.RespondAPIError(c, err, "shop")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"commandes": orders,
		"total":     len(orders),
	})
}

// ExportShopOrders streams the shop's orders as an Excel workbook
// GET /api/v1/vendeur/boutiques/:shopID/commandes/export?statut=
func (ctrl *OrderController) ExportShopOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	shopID, ok := parseIDParam(c, "shopID", false)
	if !ok {
		return
	}

	buf, filename, err := ctrl.export.Export(c.Request.Context(), shopID, c.Query("statut"))
	if err != nil {
		var apiErr *marche.APIError
		switch {
		case errors.Is(err, service.ErrInvalidOrderStatus):
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Statut de commande inconnu")
		case errors.As(err, &apiErr):
			apperrors.RespondAPIError(c, err, "shop")
		default:
			log.Error("Failed to build order export", err, map[string]interface{}{
				"shop_id": shopID,
			})
			apperrors.InternalError(c, "Impossible de générer l'export des commandes")
		}
		return
	}

	log.Info("Orders exported", map[string]interface{}{
		"shop_id": shopID,
		"bytes":   buf.Len(),
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// UpdateOrderStatus moves an order along its lifecycle
// PATCH /api/v1/vendeur/commandes/:orderID/statut
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderID", false)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Statut requis")
		return
	}

	order, err := ctrl.orders.UpdateOrderStatus(c.Request.Context(), orderID, strings.TrimSpace(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Statut de commande inconnu")
			return
		}
		apperrors.RespondAPIError(c, err, "order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Statut mis à jour",
		"commande": order,
	})
}
