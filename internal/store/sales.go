package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopdesk/internal/models"

	"github.com/google/uuid"
)

// CreateSale inserts a new sale (invoice)
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sales (id, invoice_number, customer_name, customer_phone, customer_address,
			grand_total, amount_paid, amount_due, order_status, courier_status, consignment_id,
			estimated_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	return s.db.QueryRowxContext(ctx, query,
		sale.ID, sale.InvoiceNumber, sale.CustomerName, sale.CustomerPhone, sale.CustomerAddress,
		sale.GrandTotal, sale.AmountPaid, sale.AmountDue, sale.OrderStatus, sale.CourierStatus,
		sale.ConsignmentID, sale.EstimatedDelivery,
	).Scan(&sale.CreatedAt)
}

// GetSaleByID retrieves a sale by ID
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sale not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSales retrieves sales newest first, optionally filtered by order status.
// The "pending" filter also matches legacy "partial" rows.
func (s *Store) GetSales(ctx context.Context, orderStatus string) ([]models.Sale, error) {
	var sales []models.Sale

	switch orderStatus {
	case "":
		err := s.db.SelectContext(ctx, &sales,
			"SELECT * FROM sales ORDER BY created_at DESC")
		return sales, err
	case models.OrderStatusPending:
		err := s.db.SelectContext(ctx, &sales,
			"SELECT * FROM sales WHERE order_status IN ($1, $2) ORDER BY created_at DESC",
			models.OrderStatusPending, models.OrderStatusPartial)
		return sales, err
	default:
		err := s.db.SelectContext(ctx, &sales,
			"SELECT * FROM sales WHERE order_status = $1 ORDER BY created_at DESC", orderStatus)
		return sales, err
	}
}

// GetSalesWithConsignment retrieves all sales that have been handed to the
// courier (consignment id assigned)
func (s *Store) GetSalesWithConsignment(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE consignment_id IS NOT NULL ORDER BY created_at DESC")
	return sales, err
}

// UpdateSaleCourierStatus persists the outcome of a courier status check
func (s *Store) UpdateSaleCourierStatus(ctx context.Context, saleID, courierStatus, orderStatus string, checkedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET courier_status = $1, order_status = $2, last_status_check = $3
		WHERE id = $4`,
		courierStatus, orderStatus, checkedAt, saleID)
	return err
}

// UpdateSaleOrderStatus updates just the order status
func (s *Store) UpdateSaleOrderStatus(ctx context.Context, saleID, orderStatus string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sales SET order_status = $1 WHERE id = $2", orderStatus, saleID)
	return err
}

// SetSaleConsignment records the tracking id assigned by the courier
func (s *Store) SetSaleConsignment(ctx context.Context, saleID, consignmentID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sales SET consignment_id = $1 WHERE id = $2", consignmentID, saleID)
	return err
}

// DeleteSale removes a sale and its items
func (s *Store) DeleteSale(ctx context.Context, saleID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sales_items WHERE sale_id = $1", saleID); err != nil {
		return fmt.Errorf("failed to delete sale items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", saleID); err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	return tx.Commit()
}

// CreateSaleItem inserts a new sale line item
func (s *Store) CreateSaleItem(ctx context.Context, item *models.SaleItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_items (id, sale_id, product_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.SaleID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice)
	return err
}

// GetSaleItemsBySaleID retrieves all line items of a sale
func (s *Store) GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error) {
	var items []models.SaleItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM sales_items WHERE sale_id = $1", saleID)
	return items, err
}

// CreateInventoryLog appends an audit record. Inventory logs are never
// updated or deleted.
func (s *Store) CreateInventoryLog(ctx context.Context, entry *models.InventoryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	return s.db.QueryRowxContext(ctx, `
		INSERT INTO inventory_logs (id, product_id, variant_id, type, quantity, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		entry.ID, entry.ProductID, entry.VariantID, entry.Type, entry.Quantity, entry.Reason,
	).Scan(&entry.CreatedAt)
}

// GetInventoryLogsByProductID retrieves the audit trail for a product,
// newest first
func (s *Store) GetInventoryLogsByProductID(ctx context.Context, productID string) ([]models.InventoryLog, error) {
	var logs []models.InventoryLog
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM inventory_logs WHERE product_id = $1 ORDER BY created_at DESC", productID)
	return logs, err
}
