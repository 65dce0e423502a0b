package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

type CatalogController struct {
	catalog service.CatalogService
}

func NewCatalogController(catalog service.CatalogService) *CatalogController {
	return &CatalogController{
		catalog: catalog,
	}
}

type ListProductsQuery struct {
	Search     string `form:"recherche"`
	CategoryID uint   `form:"categorie_id"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetShop returns a shop's public profile
// GET /api/v1/boutiques/:slug
func (ctrl *CatalogController) GetShop(c *gin.Context) {
	shop, err := ctrl.catalog.GetShop(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"boutique": shop,
	})
}

// ListProducts returns a page of a shop's products
// GET /api/v1/boutiques/:slug/produits
func (ctrl *CatalogController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		log.Warn("Invalid product list query", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Paramètres de recherche invalides")
		return
	}

	shop, products, err := ctrl.catalog.ListProducts(c.Request.Context(), c.Param("slug"), marche.ProductQuery{
		Search:     query.Search,
		CategoryID: query.CategoryID,
		Page:       query.Page,
		Limit:      query.Limit,
	})
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"boutique": shop,
		"produits": products.Products,
		"total":    products.Total,
		"page":     products.Page,
		"limit":    products.Limit,
	})
}

// GetProduct returns one product
// GET /api/v1/produits/:productID
func (ctrl *CatalogController) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "productID", false)
	if !ok {
		return
	}

	product, err := ctrl.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		apperrors.RespondAPIError(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"produit": product,
	})
}

func respondCatalogError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidSlug) {
		apperrors.NotFound(c, apperrors.ShopNotFound, "Boutique introuvable")
		return
	}
	apperrors.RespondAPIError(c, err, "shop")
}
