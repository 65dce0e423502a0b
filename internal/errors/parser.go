package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

// ErrorInfo is the response an error turns into
type ErrorInfo struct {
	Status  int
	Code    string // see codes.go
	Message string // French copy
}

// ParseError maps an error from the cart, session or API layers to the
// response shown to the visitor. resource names what is being handled
// ("cart", "shop", "product", "order", "auth") and refines not-found copy.
// A message supplied by the API wins for validation and conflict errors.
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: defaultMessage,
		}
	}

	// 1. Rejected locally before any request was made
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return ErrorInfo{http.StatusBadRequest, CartInvalidQuantity, "La quantité doit être au moins égale à 1"}
	case errors.Is(err, cart.ErrInvalidProduct):
		return ErrorInfo{http.StatusBadRequest, ValidationInvalidID, "Produit invalide"}
	case errors.Is(err, cart.ErrInvalidItem):
		return ErrorInfo{http.StatusBadRequest, ValidationInvalidID, "Article du panier invalide"}
	case errors.Is(err, cart.ErrItemNotInCart):
		return ErrorInfo{http.StatusNotFound, CartItemNotFound, "Cet article n'est plus dans votre panier"}
	case errors.Is(err, kvstore.ErrUnavailable):
		return ErrorInfo{http.StatusServiceUnavailable, SessionUnavailable, "Votre session est momentanément indisponible. Veuillez réessayer"}
	}

	// 2. Marché241 API failures
	var apiErr *marche.APIError
	if errors.As(err, &apiErr) {
		return parseAPIError(apiErr, resource)
	}

	// 3. Deadlines and cancellations
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{http.StatusGatewayTimeout, InternalExternalAPI, "Le serveur met trop de temps à répondre. Veuillez réessayer"}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: defaultMessage,
	}
}

// UserMessage returns only the French copy for err
func UserMessage(err error) string {
	return ParseError(err, "").Message
}


const defaultMessage = "Une erreur est survenue. Veuillez réessayer dans un instant"

func parseAPIError(e *marche.APIError, resource string) ErrorInfo {
	switch {
	case errors.Is(e, marche.ErrNetwork):
		return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "Impossible de joindre le serveur. Vérifiez votre connexion internet"}
	case errors.Is(e, marche.ErrValidation):
		return ErrorInfo{http.StatusBadRequest, ValidationInvalidInput, serverMessage(e, "Les informations envoyées sont invalides")}
	case errors.Is(e, marche.ErrUnauthorized):
		return ErrorInfo{http.StatusUnauthorized, AuthUnauthorized, "Votre session a expiré. Veuillez vous reconnecter"}
	case errors.Is(e, marche.ErrForbidden):
		return ErrorInfo{http.StatusForbidden, AuthzForbidden, "Vous n'avez pas les droits pour effectuer cette action"}
	case errors.Is(e, marche.ErrNotFound):
		return notFound(resource)
	case errors.Is(e, marche.ErrConflict):
		if resource == "cart" {
			return ErrorInfo{http.StatusConflict, CartOutOfStock, serverMessage(e, "Stock insuffisant pour ce produit")}
		}
		return ErrorInfo{http.StatusConflict, ResourceConflict, serverMessage(e, "Cette action entre en conflit avec une autre modification")}
	case errors.Is(e, marche.ErrServer):
		return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "Le service est momentanément indisponible. Veuillez réessayer plus tard"}
	default:
		return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, defaultMessage}
	}
}

func notFound(resource string) ErrorInfo {
	switch resource {
	case "cart":
		return ErrorInfo{http.StatusNotFound, CartItemNotFound, "Cet article n'est plus dans votre panier"}
	case "shop":
		return ErrorInfo{http.StatusNotFound, ShopNotFound, "Boutique introuvable"}
	case "product":
		return ErrorInfo{http.StatusNotFound, ProductNotFound, "Produit introuvable"}
	case "order":
		return ErrorInfo{http.StatusNotFound, ResourceNotFound, "Commande introuvable"}
	default:
		return ErrorInfo{http.StatusNotFound, ResourceNotFound, "Ressource introuvable"}
	}
}

// serverMessage is the API's own message unless it only restates the status
func serverMessage(e *marche.APIError, fallback string) string {
	if e.Message != "" && e.Message != http.StatusText(e.Status) {
		return e.Message
	}
	return fallback
}
