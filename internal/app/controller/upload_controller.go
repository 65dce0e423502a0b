package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/internal/storage"
)

// ImageSigner issues upload URLs for product images
type ImageSigner interface {
	PresignProductImage(ctx context.Context, shopID uint, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	storage ImageSigner
	sellers service.SellerService
}

func NewUploadController(storage ImageSigner, sellers service.SellerService) *UploadController {
	return &UploadController{
		storage: storage,
		sellers: sellers,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL signs a direct upload of a product image for one of
// the seller's shops
// POST /api/v1/vendeur/boutiques/:shopID/images
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	shopID, ok := parseIDParam(c, "shopID", false)
	if !ok {
		return
	}

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Nom et type de fichier requis")
		return
	}

	if _, err := ctrl.sellers.RequireShop(c.Request.Context(), shopID); err != nil {
		if errors.Is(err, service.ErrShopNotOwned) {
			apperrors.Forbidden(c, "Cette boutique ne vous appartient pas")
			return
		}
		apperrors.RespondAPIError(c, err, "shop")
		return
	}

	response, err := ctrl.storage.PresignProductImage(c.Request.Context(), shopID, req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrContentTypeNotAllowed) {
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Seules les images JPEG, PNG, GIF et WEBP sont acceptées")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"shop_id":  shopID,
			"filename": req.Filename,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Impossible de préparer l'envoi de l'image")
		return
	}

	log.Info("Presigned URL generated", map[string]interface{}{
		"shop_id": shopID,
		"key":     response.Key,
	})

	c.JSON(http.StatusOK, response)
}
