package cart

import (
	"fmt"
	"time"

	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/shopspring/decimal"
)

// Line is the client-side projection of one server cart line
type Line struct {
	ID               uint              `json:"id"`
	ShopID           uint              `json:"boutique_id"`
	ProductID        uint              `json:"produit_id"`
	Quantity         int               `json:"quantite"`
	SelectedVariants map[string]string `json:"variants_selectionnes,omitempty"`
	ProductName      string            `json:"nom_produit,omitempty"`
	ImageURL         string            `json:"image,omitempty"`
	UnitPrice        decimal.Decimal   `json:"prix_unitaire"`
	Subtotal         decimal.Decimal   `json:"sous_total"`
	StockAvailable   int               `json:"stock_disponible"`
	InStock          bool              `json:"en_stock"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Advisories are the corrections the server applied while reading the cart.
// They are informational and never errors.
type Advisories struct {
	RemovedItems        []marche.RemovedProduct     `json:"produits_supprimes,omitempty"`
	QuantityAdjustments []marche.QuantityAdjustment `json:"quantites_ajustees,omitempty"`
}

// Empty reports whether the server made no correction.
func (a Advisories) Empty() bool {
	return len(a.RemovedItems) == 0 && len(a.QuantityAdjustments) == 0
}

// Snapshot is the authoritative cart state for one session as last reported
// by the server.
type Snapshot struct {
	SessionID  string          `json:"session_id"`
	ShopID     uint            `json:"boutique_id,omitempty"`
	Lines      []Line          `json:"items"`
	Advisories Advisories      `json:"avertissements"`
	Notices    []string        `json:"notifications,omitempty"`
	ItemCount  int             `json:"nombre_articles"`
	Total      decimal.Decimal `json:"total"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// Line returns the line with the given id.
func (s *Snapshot) Line(id uint) (Line, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Reconcile builds a snapshot from a server cart read. Lines the server
// reports as removed are dropped, adjusted lines take the corrected quantity
// and every advisory yields a user-facing notice.
func Reconcile(sessionID string, shopID uint, resp *marche.CartResponse, now time.Time) *Snapshot {
	snap := &Snapshot{
		SessionID: sessionID,
		ShopID:    shopID,
		Lines:     []Line{},
		Total:     decimal.Zero,
		FetchedAt: now,
	}
	if resp == nil {
		return snap
	}
	if resp.Warnings != nil {
		snap.Advisories = Advisories{
			RemovedItems:        resp.Warnings.RemovedProducts,
			QuantityAdjustments: resp.Warnings.QuantityAdjustments,
		}
	}

	removed := make(map[uint]bool, len(snap.Advisories.RemovedItems))
	for _, r := range snap.Advisories.RemovedItems {
		removed[r.ID] = true
		snap.Notices = append(snap.Notices, removedNotice(r))
	}
	adjusted := make(map[uint]int, len(snap.Advisories.QuantityAdjustments))
	for _, a := range snap.Advisories.QuantityAdjustments {
		adjusted[a.ID] = a.NewQuantity
		snap.Notices = append(snap.Notices, adjustedNotice(a))
	}

	for _, raw := range resp.Lines {
		if removed[raw.ID] {
			continue
		}
		line := project(raw)
		if q, ok := adjusted[raw.ID]; ok {
			line.Quantity = q
		}
		if line.Quantity <= 0 {
			continue
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		snap.Lines = append(snap.Lines, line)
		snap.ItemCount += line.Quantity
		snap.Total = snap.Total.Add(line.Subtotal)
	}
	return snap
}

func project(raw marche.CartLine) Line {
	line := Line{
		ID:               raw.ID,
		ShopID:           raw.ShopID,
		ProductID:        raw.ProductID,
		Quantity:         raw.Quantity,
		SelectedVariants: raw.SelectedVariants,
		UnitPrice:        decimal.Zero,
		UpdatedAt:        raw.UpdatedAt,
	}
	if p := raw.Product; p != nil {
		line.ProductName = p.Name
		line.UnitPrice = p.UnitPrice()
		line.StockAvailable = p.StockAvailable
		line.InStock = p.InStock
		if len(p.Images) > 0 {
			line.ImageURL = p.Images[0]
		}
	}
	return line
}

func removedNotice(r marche.RemovedProduct) string {
	name := r.ProductName
	if name == "" {
		name = "Un article"
	}
	if r.Reason == "" {
		return fmt.Sprintf("%s a été retiré de votre panier.", name)
	}
	return fmt.Sprintf("%s a été retiré de votre panier : %s.", name, r.Reason)
}

func adjustedNotice(a marche.QuantityAdjustment) string {
	name := a.ProductName
	if name == "" {
		name = "un article"
	}
	return fmt.Sprintf("La quantité de %s est passée de %d à %d (stock disponible : %d).",
		name, a.OriginalQuantity, a.NewQuantity, a.StockAvailable)
}
