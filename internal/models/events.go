package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCreated         = "SALE_CREATED"
	EventTypeSaleStatusRefreshed = "SALE_STATUS_REFRESHED"
	EventTypeSaleCancelled       = "SALE_CANCELLED"
	EventTypeInventoryRestored   = "INVENTORY_RESTORED"
	EventTypeImagesOptimized     = "IMAGES_OPTIMIZED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCreatedEvent published when an invoice is recorded
type SaleCreatedEvent struct {
	BaseEvent
	SaleID        string          `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Items         []SaleItemData  `json:"items"`
}

// SaleStatusRefreshedEvent published after a courier status check updates a sale
type SaleStatusRefreshedEvent struct {
	BaseEvent
	SaleID        string `json:"sale_id"`
	ConsignmentID string `json:"consignment_id"`
	CourierStatus string `json:"courier_status"`
	OrderStatus   string `json:"order_status"`
}

// SaleCancelledEvent published when a status refresh classifies a sale as cancelled
type SaleCancelledEvent struct {
	BaseEvent
	SaleID        string         `json:"sale_id"`
	CourierStatus string         `json:"courier_status"`
	Items         []SaleItemData `json:"items"`
}

// InventoryRestoredEvent published after stock is restored for a cancelled sale
type InventoryRestoredEvent struct {
	BaseEvent
	SaleID   string `json:"sale_id"`
	Restored int    `json:"restored"`
	Failed   int    `json:"failed"`
}

// ImagesOptimizedEvent published when a bulk image optimization run completes
type ImagesOptimizedEvent struct {
	BaseEvent
	Compressed      int   `json:"compressed"`
	Skipped         int   `json:"skipped"`
	Errors          int   `json:"errors"`
	OriginalBytes   int64 `json:"original_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// SaleItemData represents line-item data carried in events
type SaleItemData struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
}
