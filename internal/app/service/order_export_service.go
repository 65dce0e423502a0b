package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/marche241/storefront-gateway/pkg/logger"
	"github.com/marche241/storefront-gateway/pkg/marche"
)

const exportSheet = "Commandes"

var exportHeaders = []interface{}{
	"N° commande", "Date", "Client", "Téléphone", "Ville", "Articles",
	"Sous-total (FCFA)", "Livraison (FCFA)", "Total (FCFA)", "Statut", "Paiement",
}

var orderStatusLabels = map[string]string{
	marche.OrderPending:   "En attente",
	marche.OrderConfirmed: "Confirmée",
	marche.OrderShipped:   "Expédiée",
	marche.OrderDelivered: "Livrée",
	marche.OrderCancelled: "Annulée",
}

// OrderExportService renders a shop's orders as an xlsx workbook for sellers
type OrderExportService interface {
	Export(ctx context.Context, shopID uint, status string) (*bytes.Buffer, string, error)
}

type orderExportService struct {
	orders OrderService
	now    func() time.Time
}

func NewOrderExportService(orders OrderService) OrderExportService {
	return &orderExportService{orders: orders, now: time.Now}
}

// Export returns the workbook and a suggested file name
func (s *orderExportService) Export(ctx context.Context, shopID uint, status string) (*bytes.Buffer, string, error) {
	orders, err := s.orders.ListShopOrders(ctx, shopID, status)
	if err != nil {
		return nil, "", err
	}

	buf, err := BuildOrderWorkbook(orders)
	if err != nil {
		logger.Error("Failed to build order export", err, logger.Fields{
			"shop_id": shopID,
		})
		return nil, "", err
	}

	name := fmt.Sprintf("commandes-boutique-%d-%s.xlsx", shopID, s.now().Format("20060102"))
	logger.Info("Order export built", logger.Fields{
		"shop_id": shopID,
		"orders":  len(orders),
		"bytes":   buf.Len(),
	})
	return buf, name, nil
}

// BuildOrderWorkbook writes one row per order followed by a totals row.
// Cancelled orders are listed but left out of the totals.
func BuildOrderWorkbook(orders []marche.Order) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}

	grand := decimal.Zero
	fees := decimal.Zero
	for i, order := range orders {
		row := i + 2
		subtotal := order.Total.Sub(order.DeliveryFee)
		values := []interface{}{
			order.Number,
			order.CreatedAt.Format("02/01/2006 15:04"),
			order.Customer.Name,
			order.Customer.Phone,
			order.Customer.City,
			describeLines(order.Lines),
			subtotal.InexactFloat64(),
			order.DeliveryFee.InexactFloat64(),
			order.Total.InexactFloat64(),
			statusLabel(order.Status),
			order.PaymentMethod,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write order %s: %w", order.Number, err)
		}
		if order.Status != marche.OrderCancelled {
			grand = grand.Add(order.Total)
			fees = fees.Add(order.DeliveryFee)
		}
	}

	totalRow := len(orders) + 2
	totals := []interface{}{
		"TOTAL", "", "", "", "", "",
		grand.Sub(fees).InexactFloat64(),
		fees.InexactFloat64(),
		grand.InexactFloat64(),
	}
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		return nil, fmt.Errorf("write totals: %w", err)
	}

	styles := []struct {
		from, to string
		style    int
	}{
		{"A1", "K1", headerStyle},
		{"A" + strconv.Itoa(totalRow), "K" + strconv.Itoa(totalRow), headerStyle},
		{"G2", "I" + strconv.Itoa(totalRow), amountStyle},
	}
	for _, s := range styles {
		if err := f.SetCellStyle(exportSheet, s.from, s.to, s.style); err != nil {
			return nil, fmt.Errorf("apply style: %w", err)
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "K", 18); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "F", "F", 48); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	return f.WriteToBuffer()
}

func describeLines(lines []marche.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", l.Quantity, l.ProductName))
	}
	return strings.Join(parts, ", ")
}

func statusLabel(status string) string {
	if label, ok := orderStatusLabels[status]; ok {
		return label
	}
	return status
}
