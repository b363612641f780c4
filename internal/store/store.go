package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, name, sku, rate, cost, stock_quantity, low_stock_threshold,
			size, color, image_url, has_variants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.ID, p.Name, p.SKU, p.Rate, p.Cost, p.StockQuantity, p.LowStockThreshold,
		p.Size, p.Color, p.ImageURL, p.HasVariants,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a live product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE sku = $1 AND is_deleted = FALSE", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SKUExists reports whether any live product already carries the SKU
func (s *Store) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1 AND is_deleted = FALSE)", sku)
	return exists, err
}

// GetProducts retrieves all live products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_deleted = FALSE ORDER BY created_at DESC")
	return products, err
}

// UpdateProduct updates the mutable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, sku = $2, rate = $3, cost = $4, stock_quantity = $5,
			low_stock_threshold = $6, size = $7, color = $8, image_url = $9,
			has_variants = $10, updated_at = NOW()
		WHERE id = $11`,
		p.Name, p.SKU, p.Rate, p.Cost, p.StockQuantity,
		p.LowStockThreshold, p.Size, p.Color, p.ImageURL,
		p.HasVariants, p.ID)
	return err
}

// SoftDeleteProduct flags a product as deleted without removing the row, so
// historical sales keep a valid reference
func (s *Store) SoftDeleteProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW() WHERE id = $1",
		id)
	return err
}

// RestoreProduct clears the soft-delete flag
func (s *Store) RestoreProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW() WHERE id = $1",
		id)
	return err
}

// AdjustProductStock applies a relative stock change. The increment happens
// in SQL so concurrent writers cannot lose updates.
func (s *Store) AdjustProductStock(ctx context.Context, productID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW() WHERE id = $2",
		delta, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product not found: %s", productID)
	}
	return nil
}

// CreateVariant inserts a new product variant
func (s *Store) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}

	query := `
		INSERT INTO product_variants (id, product_id, sku, rate, cost, stock_quantity,
			size, color, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		v.ID, v.ProductID, v.SKU, v.Rate, v.Cost, v.StockQuantity,
		v.Size, v.Color, v.ImageURL,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

// GetVariantByID retrieves a variant by ID
func (s *Store) GetVariantByID(ctx context.Context, id string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM product_variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("variant not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantsByProductID retrieves all variants of a product
func (s *Store) GetVariantsByProductID(ctx context.Context, productID string) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY created_at", productID)
	return variants, err
}

// AdjustVariantStock applies a relative stock change to a variant
func (s *Store) AdjustVariantStock(ctx context.Context, variantID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE product_variants SET stock_quantity = stock_quantity + $1, updated_at = NOW() WHERE id = $2",
		delta, variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("variant not found: %s", variantID)
	}
	return nil
}

// GetVariantStockSum returns the summed stock of a product's variants. When
// has_variants is set this sum is the authoritative stock level.
func (s *Store) GetVariantStockSum(ctx context.Context, productID string) (int, error) {
	var sum int
	err := s.db.GetContext(ctx, &sum,
		"SELECT COALESCE(SUM(stock_quantity), 0) FROM product_variants WHERE product_id = $1",
		productID)
	return sum, err
}

// GetLowStockProducts lists live products at or under their low-stock
// threshold, using the variant sum where variants exist
func (s *Store) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT p.* FROM products p
		WHERE p.is_deleted = FALSE
		  AND (
			(p.has_variants = FALSE AND p.stock_quantity <= p.low_stock_threshold)
			OR
			(p.has_variants = TRUE AND (
				SELECT COALESCE(SUM(v.stock_quantity), 0)
				FROM product_variants v WHERE v.product_id = p.id
			) <= p.low_stock_threshold)
		  )
		ORDER BY p.name`)
	return products, err
}
