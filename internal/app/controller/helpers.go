package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
)

// parseIDParam reads a numeric path parameter. allowZero admits 0, used for
// the all-shops cart scope.
func parseIDParam(c *gin.Context, name string, allowZero bool) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || (id == 0 && !allowZero) {
		middleware.GetLoggerFromContext(c).Warn("Invalid id parameter", map[string]interface{}{
			"param": name,
			"value": c.Param(name),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Identifiant invalide")
		return 0, false
	}
	return uint(id), true
}

// requireVisitor returns the visitor id set by VisitorMiddleware
func requireVisitor(c *gin.Context) (string, bool) {
	visitor, ok := middleware.GetVisitorID(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Visitor middleware missing on cart route", nil)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalConfigError, "Session visiteur introuvable")
		return "", false
	}
	return visitor, true
}
