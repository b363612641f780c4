package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. Rows are soft-deleted so historical
// sales keep a valid reference.
type Product struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	SKU               *string         `db:"sku" json:"sku,omitempty"`
	Rate              decimal.Decimal `db:"rate" json:"rate"`
	Cost              *decimal.Decimal `db:"cost" json:"cost,omitempty"`
	StockQuantity     int             `db:"stock_quantity" json:"stock_quantity"`
	LowStockThreshold int             `db:"low_stock_threshold" json:"low_stock_threshold"`
	Size              *string         `db:"size" json:"size,omitempty"`
	Color             *string         `db:"color" json:"color,omitempty"`
	ImageURL          *string         `db:"image_url" json:"image_url,omitempty"`
	HasVariants       bool            `db:"has_variants" json:"has_variants"`
	IsDeleted         bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt         *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductVariant is one size/color combination of a product with its own
// stock and pricing. When the parent has variants, the sum of variant stocks
// is the authoritative stock level.
type ProductVariant struct {
	ID            string          `db:"id" json:"id"`
	ProductID     string          `db:"product_id" json:"product_id"`
	SKU           *string         `db:"sku" json:"sku,omitempty"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	Cost          *decimal.Decimal `db:"cost" json:"cost,omitempty"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Size          *string         `db:"size" json:"size,omitempty"`
	Color         *string         `db:"color" json:"color,omitempty"`
	ImageURL      *string         `db:"image_url" json:"image_url,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Sale represents an invoice. A consignment id is assigned once the order is
// handed to the courier; its presence distinguishes "not yet shipped" from
// "shipped".
type Sale struct {
	ID                string          `db:"id" json:"id"`
	InvoiceNumber     string          `db:"invoice_number" json:"invoice_number"`
	CustomerName      string          `db:"customer_name" json:"customer_name"`
	CustomerPhone     *string         `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerAddress   *string         `db:"customer_address" json:"customer_address,omitempty"`
	GrandTotal        decimal.Decimal `db:"grand_total" json:"grand_total"`
	AmountPaid        decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	AmountDue         decimal.Decimal `db:"amount_due" json:"amount_due"`
	OrderStatus       string          `db:"order_status" json:"order_status"`
	CourierStatus     *string         `db:"courier_status" json:"courier_status,omitempty"`
	ConsignmentID     *string         `db:"consignment_id" json:"consignment_id,omitempty"`
	LastStatusCheck   *time.Time      `db:"last_status_check" json:"last_status_check,omitempty"`
	EstimatedDelivery *time.Time      `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// SaleItem is one line of an invoice. Immutable once the sale is finalized.
type SaleItem struct {
	ID        string          `db:"id" json:"id"`
	SaleID    string          `db:"sale_id" json:"sale_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	VariantID *string         `db:"variant_id" json:"variant_id,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// InventoryLog is an append-only audit record of a stock mutation.
type InventoryLog struct {
	ID        string     `db:"id" json:"id"`
	ProductID string     `db:"product_id" json:"product_id"`
	VariantID *string    `db:"variant_id" json:"variant_id,omitempty"`
	Type      string     `db:"type" json:"type"`
	Quantity  int        `db:"quantity" json:"quantity"`
	Reason    string     `db:"reason" json:"reason"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Order statuses. "partial" is a legacy value still present on old rows; it
// is read-compatible and filtered together with pending.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusPartial   = "partial"
)

// Courier display statuses shown as badges in the dashboard.
const (
	CourierStatusCancelled      = "cancelled"
	CourierStatusInTransit      = "in_transit"
	CourierStatusOutForDelivery = "out_for_delivery"
	CourierStatusDelivered      = "delivered"
	CourierStatusReturned       = "returned"
)

// Inventory log types.
const (
	InventoryLogRestoreCancellation = "restore_cancellation"
	InventoryLogSaleDeduction       = "sale_deduction"
	InventoryLogManualAdjustment    = "manual_adjustment"
)

// PlaceholderImageURL marks products that never got a real photo; the
// optimizer skips it.
const PlaceholderImageURL = "/placeholder.svg"
