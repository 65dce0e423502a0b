package controller

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

type AuthController struct {
	authService service.AuthService
	cookieName  string
	domain      string
	secure      bool
}

func NewAuthController(authService service.AuthService, auth config.AuthConfig, session config.SessionConfig) *AuthController {
	return &AuthController{
		authService: authService,
		cookieName:  auth.TokenCookie,
		domain:      session.CookieDomain,
		secure:      session.CookieSecure,
	}
}

type RequestCodeRequest struct {
	Channel     string `json:"canal" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

type VerifyCodeRequest struct {
	Destination string `json:"destination" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

// RequestCode sends a one-time login code by email or WhatsApp
// POST /api/v1/auth/code
func (ctrl *AuthController) RequestCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid code request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Canal et destination requis")
		return
	}

	sent, err := ctrl.authService.RequestCode(c.Request.Context(), req.Channel, req.Destination)
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.As(err, &cooldown):
			seconds := int(math.Ceil(cooldown.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":          apperrors.AuthCodeTooSoon,
				"message":        "Un code vient d'être envoyé. Patientez avant d'en demander un autre",
				"reessayer_dans": seconds,
			})
		case errors.Is(err, service.ErrInvalidChannel):
			apperrors.BadRequest(c, apperrors.AuthInvalidChannel, "Canal inconnu (email ou whatsapp)")
		case errors.Is(err, service.ErrInvalidDestination):
			apperrors.BadRequest(c, apperrors.AuthInvalidContact, "Adresse email ou numéro de téléphone invalide")
		default:
			apperrors.RespondAPIError(c, err, "auth")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     sent.Message,
		"canal":       sent.Channel,
		"destination": sent.Destination,
		"renvoi_dans": int(sent.ResendIn.Seconds()),
	})
}

// VerifyCode exchanges a code for a seller token, set as an HttpOnly cookie
// POST /api/v1/auth/verify
func (ctrl *AuthController) VerifyCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid verify request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Destination et code requis")
		return
	}

	result, err := ctrl.authService.VerifyCode(c.Request.Context(), req.Destination, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDestination):
			apperrors.BadRequest(c, apperrors.AuthInvalidContact, "Adresse email ou numéro de téléphone invalide")
		case errors.Is(err, service.ErrInvalidCode), errors.Is(err, marche.ErrValidation):
			apperrors.BadRequest(c, apperrors.AuthCodeInvalid, "Code invalide ou expiré")
		case errors.Is(err, service.ErrTokenRejected):
			apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.InternalExternalAPI, "Connexion impossible pour le moment")
		default:
			apperrors.RespondAPIError(c, err, "auth")
		}
		return
	}

	ctrl.setTokenCookie(c, result.Token, int(result.TokenTTL.Seconds()))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Connexion réussie",
		"token":   result.Token,
		"session": result,
	})
}

// Logout clears the token cookie
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	ctrl.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Déconnexion réussie",
	})
}

func (ctrl *AuthController) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ctrl.cookieName, value, maxAge, "/", ctrl.domain, ctrl.secure, true)
}
