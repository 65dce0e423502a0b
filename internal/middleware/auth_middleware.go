package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/util"
)

// Context keys for seller information
const (
	SellerIDKey    = "seller_id"
	SellerRoleKey  = "seller_role"
	SellerTokenKey = "seller_token"
)

// AuthMiddleware guards the seller routes. Tokens are issued and verified by
// the Marché241 API; the gateway only reads their claims to fail fast on
// missing or expired tokens and forwards them with every call.
type AuthMiddleware struct {
	cookieName string
	now        func() time.Time
}

func NewAuthMiddleware(cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		cookieName: cookieName,
		now:        time.Now,
	}
}

// WithClock replaces the clock used to check token expiry
func (m *AuthMiddleware) WithClock(now func() time.Time) *AuthMiddleware {
	m.now = now
	return m
}

// Authenticate requires a seller token from the Authorization header or the
// auth cookie
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := m.extractToken(c)
		if !ok {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Format d'authentification invalide")
			c.Abort()
			return
		}
		if token == "" {
			log.Warn("Missing seller token", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claims, err := util.ReadTokenClaims(token, m.now())
		if err != nil {
			log.Warn("Token rejected", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Votre session a expiré. Veuillez vous reconnecter")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Jeton d'authentification invalide")
			}
			c.Abort()
			return
		}

		c.Set(SellerIDKey, claims.Subject)
		c.Set(SellerRoleKey, claims.Role)
		c.Set(SellerTokenKey, token)
		c.Request = c.Request.WithContext(marche.WithToken(c.Request.Context(), token))

		log.Debug("Seller authenticated", map[string]interface{}{
			"seller_id": claims.Subject,
			"role":      claims.Role,
		})

		c.Next()
	}
}

// extractToken returns ok=false only for a malformed Authorization header
func (m *AuthMiddleware) extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	token, _ := c.Cookie(m.cookieName)
	return token, true
}

// GetSellerID extracts the seller id from context
func GetSellerID(c *gin.Context) (string, bool) {
	id := c.GetString(SellerIDKey)
	return id, id != ""
}
