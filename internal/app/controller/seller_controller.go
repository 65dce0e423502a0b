package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
)

type SellerController struct {
	sellers service.SellerService
}

func NewSellerController(sellers service.SellerService) *SellerController {
	return &SellerController{
		sellers: sellers,
	}
}

// ListShops returns the shops owned by the logged-in seller and where the
// dashboard should land
// GET /api/v1/vendeur/boutiques
func (ctrl *SellerController) ListShops(c *gin.Context) {
	sellerID, _ := middleware.GetSellerID(c)

	shops, err := ctrl.sellers.OwnedShops(c.Request.Context())
	if err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to list seller shops", map[string]interface{}{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		apperrors.RespondAPIError(c, err, "shop")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"boutiques": shops,
		"redirect":  service.RedirectFor(shops),
	})
}
