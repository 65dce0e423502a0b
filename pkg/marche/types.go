package marche

import (
	"time"

	"github.com/shopspring/decimal"
)

// Envelope is the wrapper every API response shares
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Ack is returned by mutating calls that do not carry a payload
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ShopSummary is the denormalized shop snapshot embedded in cart lines
type ShopSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"nom"`
	Slug string `json:"slug"`
	Logo string `json:"logo,omitempty"`
}

// ProductSummary is the denormalized product snapshot embedded in cart lines
type ProductSummary struct {
	ID             uint            `json:"id"`
	Name           string          `json:"nom"`
	Price          decimal.Decimal `json:"prix"`
	PromoPrice     decimal.Decimal `json:"prix_promo"`
	Images         []string        `json:"images,omitempty"`
	StockAvailable int             `json:"stock_disponible"`
	InStock        bool            `json:"en_stock"`
	Active         bool            `json:"actif"`
}

// UnitPrice is the promotional price when one is set, the list price otherwise.
func (p ProductSummary) UnitPrice() decimal.Decimal {
	if p.PromoPrice.IsPositive() {
		return p.PromoPrice
	}
	return p.Price
}

// CartLine is one server-side cart entry
type CartLine struct {
	ID               uint              `json:"id"`
	SessionID        string            `json:"session_id"`
	ShopID           uint              `json:"boutique_id"`
	ProductID        uint              `json:"produit_id"`
	Quantity         int               `json:"quantite"`
	SelectedVariants map[string]string `json:"variants_selectionnes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Shop             *ShopSummary      `json:"boutique,omitempty"`
	Product          *ProductSummary   `json:"produit,omitempty"`
}

// RemovedProduct reports a line the server dropped while reconciling
type RemovedProduct struct {
	ID          uint   `json:"id"`
	ProductName string `json:"nom,omitempty"`
	Reason      string `json:"raison"`
}

// QuantityAdjustment reports a line whose quantity the server lowered
type QuantityAdjustment struct {
	ID               uint   `json:"id"`
	ProductName      string `json:"nom,omitempty"`
	OriginalQuantity int    `json:"ancienneQuantite"`
	NewQuantity      int    `json:"nouvelleQuantite"`
	StockAvailable   int    `json:"stockDisponible"`
}

// CartWarnings carries the advisories attached to a cart read
type CartWarnings struct {
	RemovedProducts     []RemovedProduct     `json:"produitsSupprimes,omitempty"`
	QuantityAdjustments []QuantityAdjustment `json:"quantitesAjustees,omitempty"`
}

// CartResponse is returned by GET /panier/{session_id}
type CartResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Lines    []CartLine    `json:"panier"`
	Warnings *CartWarnings `json:"avertissements,omitempty"`
}

// AddToCartRequest is the body of POST /panier
type AddToCartRequest struct {
	SessionID        string            `json:"session_id"`
	ShopID           uint              `json:"boutique_id"`
	ProductID        uint              `json:"produit_id"`
	Quantity         int               `json:"quantite"`
	SelectedVariants map[string]string `json:"variants_selectionnes"`
}

// CartLineResponse is returned by cart mutations that echo the touched line
type CartLineResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Line    *CartLine `json:"panier_item,omitempty"`
}

// VariantOption is one selectable value of a product variant
type VariantOption struct {
	Value           string          `json:"valeur"`
	AdditionalPrice decimal.Decimal `json:"prix_supplementaire"`
	Stock           int             `json:"stock,omitempty"`
}

// Variant is a named product dimension such as taille or couleur
type Variant struct {
	Name    string          `json:"nom"`
	Options []VariantOption `json:"options"`
}

// Product is the catalog view of a product
type Product struct {
	ID             uint            `json:"id"`
	ShopID         uint            `json:"boutique_id"`
	CategoryID     *uint           `json:"categorie_id,omitempty"`
	Name           string          `json:"nom"`
	Slug           string          `json:"slug,omitempty"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"prix"`
	PromoPrice     decimal.Decimal `json:"prix_promo"`
	StockAvailable int             `json:"stock_disponible"`
	Images         []string        `json:"images,omitempty"`
	Variants       []Variant       `json:"variants,omitempty"`
	Active         bool            `json:"actif"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProductList is a page of products
type ProductList struct {
	Success  bool      `json:"success"`
	Products []Product `json:"data"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

// ProductQuery filters a shop's catalog
type ProductQuery struct {
	Search     string
	CategoryID uint
	Page       int
	Limit      int
}

// Shop is the public shop profile
type Shop struct {
	ID          uint      `json:"id"`
	Name        string    `json:"nom"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	Banner      string    `json:"banniere,omitempty"`
	Phone       string    `json:"telephone,omitempty"`
	WhatsApp    string    `json:"whatsapp,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"adresse,omitempty"`
	Status      string    `json:"statut"`
	OwnerID     uint      `json:"proprietaire_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Customer identifies the buyer of a checkout
type Customer struct {
	Name    string `json:"nom"`
	Phone   string `json:"telephone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"adresse_livraison"`
	City    string `json:"ville,omitempty"`
}

// CreateOrderRequest is the body of POST /commandes
type CreateOrderRequest struct {
	SessionID     string   `json:"session_id"`
	ShopID        uint     `json:"boutique_id"`
	Customer      Customer `json:"client"`
	PaymentMethod string   `json:"methode_paiement"`
	Notes         string   `json:"notes,omitempty"`
}

// OrderLine is one product of an order
type OrderLine struct {
	ProductID        uint              `json:"produit_id"`
	ProductName      string            `json:"nom_produit"`
	Quantity         int               `json:"quantite"`
	UnitPrice        decimal.Decimal   `json:"prix_unitaire"`
	SelectedVariants map[string]string `json:"variants_selectionnes,omitempty"`
}

// Order is an order as the API reports it
type Order struct {
	ID            uint            `json:"id"`
	Number        string          `json:"numero_commande"`
	ShopID        uint            `json:"boutique_id"`
	Customer      Customer        `json:"client"`
	Lines         []OrderLine     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	DeliveryFee   decimal.Decimal `json:"frais_livraison"`
	Status        string          `json:"statut"`
	PaymentMethod string          `json:"methode_paiement"`
	PaymentStatus string          `json:"statut_paiement"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Order statuses accepted by PATCH /commandes/{id}/statut
const (
	OrderPending   = "en_attente"
	OrderConfirmed = "confirmee"
	OrderShipped   = "expediee"
	OrderDelivered = "livree"
	OrderCancelled = "annulee"
)

// ValidOrderStatus reports whether status is one the API accepts
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Verification channels for one-time codes
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// CodeRequest asks the API to send a one-time code
type CodeRequest struct {
	Channel     string `json:"canal"`
	Destination string `json:"destination"`
}

// CodeVerification submits a received one-time code
type CodeVerification struct {
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

// User is the authenticated seller
type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"nom,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"telephone,omitempty"`
	Role     string `json:"role"`
	Verified bool   `json:"verifie"`
}

// VerifyResponse is returned by POST /auth/verifier-code
type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}
