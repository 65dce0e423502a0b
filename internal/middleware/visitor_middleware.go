package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marche241/storefront-gateway/config"
)

const (
	VisitorIDKey = "visitor_id"

	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// VisitorMiddleware identifies the anonymous visitor by an opaque cookie,
// issuing a new one on first contact or when the cookie was tampered with.
// Everything the gateway keeps for the visitor is keyed by this id.
func VisitorMiddleware(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		visitorID, err := c.Cookie(cfg.VisitorCookie)
		if err == nil {
			if _, perr := uuid.Parse(visitorID); perr != nil {
				log.Warn("Discarding malformed visitor cookie")
				err = perr
			}
		}
		if err != nil {
			visitorID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.VisitorCookie, visitorID, visitorCookieMaxAge, "/", cfg.CookieDomain, cfg.CookieSecure, true)
			log.Debug("Issued visitor cookie", map[string]interface{}{
				"visitor_id": visitorID,
			})
		}

		c.Set(VisitorIDKey, visitorID)
		c.Next()
	}
}

// GetVisitorID extracts the visitor id set by VisitorMiddleware
func GetVisitorID(c *gin.Context) (string, bool) {
	visitorID := c.GetString(VisitorIDKey)
	return visitorID, visitorID != ""
}
