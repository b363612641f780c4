package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/models"
	"shopdesk/internal/store"
	"shopdesk/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// salesEventPublisher is implemented by broker.EventPublisher.
type salesEventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
}

// SalesService handles invoice recording and reporting.
type SalesService struct {
	store      *store.Store
	reconciler *InventoryReconciler
	publisher  salesEventPublisher
	logger     *zap.Logger
}

// NewSalesService creates a new sales service. publisher may be nil.
func NewSalesService(store *store.Store, reconciler *InventoryReconciler, publisher salesEventPublisher) *SalesService {
	return &SalesService{
		store:      store,
		reconciler: reconciler,
		publisher:  publisher,
		logger:     util.GetLogger(),
	}
}

// SaleItemRequest is one line of a new invoice
type SaleItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

// CreateSaleRequest represents a request to record a sale
type CreateSaleRequest struct {
	CustomerName    string            `json:"customer_name" binding:"required"`
	CustomerPhone   *string           `json:"customer_phone,omitempty"`
	CustomerAddress *string           `json:"customer_address,omitempty"`
	AmountPaid      decimal.Decimal   `json:"amount_paid"`
	ConsignmentID   *string           `json:"consignment_id,omitempty"`
	Items           []SaleItemRequest `json:"items" binding:"required,min=1"`
}

// CreateSale records an invoice: prices each line from the catalog, derives
// grand total and amount due, deducts stock, and writes one audit log entry
// per line.
func (ss *SalesService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.CreateSale")
	defer span.End()

	type pricedItem struct {
		req       SaleItemRequest
		unitPrice decimal.Decimal
	}

	priced := make([]pricedItem, 0, len(req.Items))
	grandTotal := decimal.Zero

	for _, item := range req.Items {
		unitPrice, err := ss.unitPrice(ctx, item)
		if err != nil {
			return nil, err
		}
		priced = append(priced, pricedItem{req: item, unitPrice: unitPrice})
		grandTotal = grandTotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	amountPaid := req.AmountPaid
	if amountPaid.IsNegative() {
		return nil, fmt.Errorf("amount paid cannot be negative")
	}

	sale := &models.Sale{
		InvoiceNumber:   NewInvoiceNumber(time.Now()),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		GrandTotal:      grandTotal,
		AmountPaid:      amountPaid,
		AmountDue:       grandTotal.Sub(amountPaid),
		OrderStatus:     models.OrderStatusPending,
		ConsignmentID:   req.ConsignmentID,
	}

	if err := ss.store.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	util.SalesCreatedTotal.Inc()

	eventItems := make([]models.SaleItemData, 0, len(priced))
	for _, pi := range priced {
		saleItem := &models.SaleItem{
			SaleID:    sale.ID,
			ProductID: pi.req.ProductID,
			VariantID: pi.req.VariantID,
			Quantity:  pi.req.Quantity,
			UnitPrice: pi.unitPrice,
		}
		if err := ss.store.CreateSaleItem(ctx, saleItem); err != nil {
			return nil, fmt.Errorf("failed to create sale item: %w", err)
		}

		ss.deductStock(ctx, sale.ID, pi.req)

		eventItems = append(eventItems, models.SaleItemData{
			ProductID: pi.req.ProductID,
			VariantID: pi.req.VariantID,
			Quantity:  pi.req.Quantity,
		})
	}

	ss.logger.Info("Sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("grand_total", sale.GrandTotal.String()))

	ss.publishCreated(ctx, sale, eventItems)
	return sale, nil
}

func (ss *SalesService) unitPrice(ctx context.Context, item SaleItemRequest) (decimal.Decimal, error) {
	if item.VariantID != nil {
		variant, err := ss.store.GetVariantByID(ctx, *item.VariantID)
		if err != nil {
			return decimal.Zero, err
		}
		if variant.ProductID != item.ProductID {
			return decimal.Zero, fmt.Errorf("variant %s does not belong to product %s", *item.VariantID, item.ProductID)
		}
		return variant.Rate, nil
	}

	product, err := ss.store.GetProductByID(ctx, item.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Rate, nil
}

// deductStock decrements stock for a sold line and appends the audit entry.
// Best-effort: a failed deduction is logged but does not fail the sale.
func (ss *SalesService) deductStock(ctx context.Context, saleID string, item SaleItemRequest) {
	var err error
	if item.VariantID != nil {
		err = ss.store.AdjustVariantStock(ctx, *item.VariantID, -item.Quantity)
	} else {
		err = ss.store.AdjustProductStock(ctx, item.ProductID, -item.Quantity)
	}
	if err != nil {
		ss.logger.Error("Failed to deduct stock",
			zap.String("sale_id", saleID),
			zap.String("product_id", item.ProductID),
			zap.Error(err))
		return
	}

	entry := &models.InventoryLog{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Type:      models.InventoryLogSaleDeduction,
		Quantity:  -item.Quantity,
		Reason:    fmt.Sprintf("Sold (Sale ID: %s)", saleID),
	}
	if err := ss.store.CreateInventoryLog(ctx, entry); err != nil {
		ss.logger.Error("Failed to append inventory log",
			zap.String("sale_id", saleID),
			zap.Error(err))
	}
}

// GetSale retrieves a sale with its line items
func (ss *SalesService) GetSale(ctx context.Context, saleID string) (*models.Sale, []models.SaleItem, error) {
	sale, err := ss.store.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	items, err := ss.store.GetSaleItemsBySaleID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	return sale, items, nil
}

// GetSales lists sales, optionally filtered by order status
func (ss *SalesService) GetSales(ctx context.Context, orderStatus string) ([]models.Sale, error) {
	return ss.store.GetSales(ctx, orderStatus)
}

// SetConsignment records the courier consignment id for a sale, marking it
// as handed over for delivery
func (ss *SalesService) SetConsignment(ctx context.Context, saleID, consignmentID string) error {
	if strings.TrimSpace(consignmentID) == "" {
		return fmt.Errorf("consignment id cannot be empty")
	}
	if err := ss.store.SetSaleConsignment(ctx, saleID, consignmentID); err != nil {
		return fmt.Errorf("failed to set consignment: %w", err)
	}
	ss.logger.Info("Consignment assigned",
		zap.String("sale_id", saleID),
		zap.String("consignment_id", consignmentID))
	return nil
}

// SetOrderStatus manually overrides a sale's order status, for sales that
// never go through a courier. A transition into cancelled puts the sold
// quantities back in stock.
func (ss *SalesService) SetOrderStatus(ctx context.Context, saleID, orderStatus string) error {
	switch orderStatus {
	case models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusCancelled:
	default:
		return fmt.Errorf("invalid order status %q", orderStatus)
	}

	sale, err := ss.store.GetSaleByID(ctx, saleID)
	if err != nil {
		return err
	}

	if err := ss.store.UpdateSaleOrderStatus(ctx, saleID, orderStatus); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if orderStatus == models.OrderStatusCancelled && sale.OrderStatus != models.OrderStatusCancelled && ss.reconciler != nil {
		if _, err := ss.reconciler.RestoreInventory(ctx, saleID); err != nil {
			ss.logger.Error("Inventory restoration failed after manual cancellation",
				zap.String("sale_id", saleID),
				zap.Error(err))
		}
	}

	ss.logger.Info("Order status updated",
		zap.String("sale_id", saleID),
		zap.String("order_status", orderStatus))
	return nil
}

// DeleteSale removes a sale and its items
func (ss *SalesService) DeleteSale(ctx context.Context, saleID string) error {
	if err := ss.store.DeleteSale(ctx, saleID); err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	ss.logger.Info("Sale deleted", zap.String("sale_id", saleID))
	return nil
}

// SalesStats is the dashboard revenue summary.
type SalesStats struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalDue     decimal.Decimal `json:"total_due"`
	RevenueCount int             `json:"revenue_count"`
	PaidCount    int             `json:"paid_count"`
	DueCount     int             `json:"due_count"`
}

// ComputeStats aggregates revenue figures: cancelled sales are excluded from
// revenue, only paid sales count toward amount paid, and amount due covers
// pending and legacy partial sales.
func ComputeStats(sales []models.Sale) SalesStats {
	stats := SalesStats{
		TotalRevenue: decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalDue:     decimal.Zero,
	}

	for _, sale := range sales {
		orderStatus := strings.ToLower(sale.OrderStatus)

		if orderStatus != models.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(sale.GrandTotal)
			stats.RevenueCount++
		}

		if orderStatus == models.OrderStatusPaid {
			stats.TotalPaid = stats.TotalPaid.Add(sale.GrandTotal)
			stats.PaidCount++
		}

		if orderStatus != models.OrderStatusCancelled && orderStatus != models.OrderStatusPaid {
			stats.TotalDue = stats.TotalDue.Add(sale.AmountDue)
			stats.DueCount++
		}
	}

	return stats
}

// GetStats aggregates revenue figures across sales, optionally filtered by
// order status
func (ss *SalesService) GetStats(ctx context.Context, orderStatus string) (*SalesStats, error) {
	sales, err := ss.store.GetSales(ctx, orderStatus)
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(sales)
	return &stats, nil
}

// NewInvoiceNumber builds a readable unique invoice number like
// INV-20260829-3F2A.
func NewInvoiceNumber(at time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("INV-%s-%s", at.Format("20060102"), suffix)
}

func (ss *SalesService) publishCreated(ctx context.Context, sale *models.Sale, items []models.SaleItemData) {
	if ss.publisher == nil {
		return
	}

	event := &models.SaleCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCreated,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		GrandTotal:    sale.GrandTotal,
		Items:         items,
	}

	if err := ss.publisher.PublishSaleCreated(ctx, event); err != nil {
		ss.logger.Error("Failed to publish SaleCreated event", zap.Error(err))
	}
}
