package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"shopdesk/internal/models"
	"shopdesk/internal/redisclient"
	"shopdesk/internal/store"
	"shopdesk/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles product and variant management.
type CatalogService struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil; stock
// lookups then always hit the database.
func NewCatalogService(store *store.Store, cache *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name              string           `json:"name" binding:"required"`
	SKU               *string          `json:"sku,omitempty"`
	Rate              decimal.Decimal  `json:"rate" binding:"required"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	StockQuantity     int              `json:"stock_quantity"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	Size              *string          `json:"size,omitempty"`
	Color             *string          `json:"color,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	HasVariants       bool             `json:"has_variants"`
}

// CreateProduct creates a product. A SKU that collides with a live product
// is rewritten to a close unique variant rather than rejected, so bulk entry
// never stalls on duplicates.
func (cs *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	sku := req.SKU
	if sku != nil && strings.TrimSpace(*sku) != "" {
		resolved, err := cs.resolveSKU(ctx, strings.TrimSpace(*sku))
		if err != nil {
			return nil, err
		}
		sku = &resolved
	} else {
		sku = nil
	}

	product := &models.Product{
		Name:              req.Name,
		SKU:               sku,
		Rate:              req.Rate,
		Cost:              req.Cost,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		Size:              req.Size,
		Color:             req.Color,
		ImageURL:          req.ImageURL,
		HasVariants:       req.HasVariants,
	}

	if err := cs.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	cs.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))

	return product, nil
}

// resolveSKU returns the SKU itself when free, otherwise the nearest unique
// variant: bump the trailing character, then digit suffixes 1-9, then letter
// suffixes A-Z, then a short random suffix.
func (cs *CatalogService) resolveSKU(ctx context.Context, sku string) (string, error) {
	exists, err := cs.store.SKUExists(ctx, sku)
	if err != nil {
		return "", fmt.Errorf("failed to check SKU: %w", err)
	}
	if !exists {
		return sku, nil
	}

	if candidate := bumpTrailingChar(sku); candidate != "" {
		exists, err := cs.store.SKUExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			cs.logger.Info("SKU conflict resolved", zap.String("from", sku), zap.String("to", candidate))
			return candidate, nil
		}
	}

	for i := 1; i <= 9; i++ {
		candidate := fmt.Sprintf("%s%d", sku, i)
		exists, err := cs.store.SKUExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			cs.logger.Info("SKU conflict resolved", zap.String("from", sku), zap.String("to", candidate))
			return candidate, nil
		}
	}

	for c := 'A'; c <= 'Z'; c++ {
		candidate := fmt.Sprintf("%s%c", sku, c)
		exists, err := cs.store.SKUExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			cs.logger.Info("SKU conflict resolved", zap.String("from", sku), zap.String("to", candidate))
			return candidate, nil
		}
	}

	suffix := randomSKUSuffix(2)
	return sku + suffix, nil
}

// bumpTrailingChar increments the last character of a SKU: digits 0-8 step
// to the next digit, letters A-Y step to the next letter, anything else gets
// a "1" appended. Returns "" for an empty input.
func bumpTrailingChar(sku string) string {
	if sku == "" {
		return ""
	}

	last := sku[len(sku)-1]
	switch {
	case last >= '0' && last <= '8':
		return sku[:len(sku)-1] + string(last+1)
	case last >= 'A' && last <= 'Y':
		return sku[:len(sku)-1] + string(last+1)
	default:
		return sku + "1"
	}
}

func randomSKUSuffix(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// GetProducts lists all live products
func (cs *CatalogService) GetProducts(ctx context.Context) ([]models.Product, error) {
	return cs.store.GetProducts(ctx)
}

// GetProduct retrieves one product with its variants
func (cs *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, []models.ProductVariant, error) {
	product, err := cs.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var variants []models.ProductVariant
	if product.HasVariants {
		variants, err = cs.store.GetVariantsByProductID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
	}

	return product, variants, nil
}

// UpdateProduct updates a product's mutable fields
func (cs *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := cs.store.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// GetProductBySKU looks up a live product by its SKU
func (cs *CatalogService) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return cs.store.GetProductBySKU(ctx, sku)
}

// DeleteProduct soft-deletes a product so past sales keep their reference
func (cs *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := cs.store.SoftDeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if cs.cache != nil {
		if err := cs.cache.InvalidateStock(ctx, id); err != nil {
			cs.logger.Warn("Failed to invalidate stock cache", zap.String("product_id", id), zap.Error(err))
		}
	}
	cs.logger.Info("Product soft-deleted", zap.String("product_id", id))
	return nil
}

// RestoreProduct clears a product's soft-delete flag
func (cs *CatalogService) RestoreProduct(ctx context.Context, id string) error {
	if err := cs.store.RestoreProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to restore product: %w", err)
	}
	cs.logger.Info("Product restored", zap.String("product_id", id))
	return nil
}

// CreateVariantRequest represents a request to add a variant
type CreateVariantRequest struct {
	SKU           *string          `json:"sku,omitempty"`
	Rate          decimal.Decimal  `json:"rate" binding:"required"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	Size          *string          `json:"size,omitempty"`
	Color         *string          `json:"color,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty"`
}

// CreateVariant adds a variant and marks the parent as variant-carrying
func (cs *CatalogService) CreateVariant(ctx context.Context, productID string, req *CreateVariantRequest) (*models.ProductVariant, error) {
	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		ProductID:     productID,
		SKU:           req.SKU,
		Rate:          req.Rate,
		Cost:          req.Cost,
		StockQuantity: req.StockQuantity,
		Size:          req.Size,
		Color:         req.Color,
		ImageURL:      req.ImageURL,
	}

	if err := cs.store.CreateVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}

	if !product.HasVariants {
		product.HasVariants = true
		if err := cs.store.UpdateProduct(ctx, product); err != nil {
			cs.logger.Error("Failed to flag product as variant-carrying",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}

	return variant, nil
}

// EffectiveStock returns the authoritative stock level: the variant sum when
// the product has variants, its own quantity otherwise. Variant sums are
// served from the cache when one is configured.
func (cs *CatalogService) EffectiveStock(ctx context.Context, product *models.Product) (int, error) {
	if !product.HasVariants {
		return product.StockQuantity, nil
	}

	if cs.cache != nil {
		if stock, ok, err := cs.cache.GetStock(ctx, product.ID); err == nil && ok {
			return stock, nil
		}
	}

	stock, err := cs.store.GetVariantStockSum(ctx, product.ID)
	if err != nil {
		return 0, err
	}

	if cs.cache != nil {
		if err := cs.cache.SetStock(ctx, product.ID, stock); err != nil {
			cs.logger.Warn("Failed to cache stock level", zap.String("product_id", product.ID), zap.Error(err))
		}
	}

	return stock, nil
}

// GetLowStockProducts lists products at or under their low-stock threshold
func (cs *CatalogService) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return cs.store.GetLowStockProducts(ctx)
}

// GetInventoryLogs returns the audit trail of stock movements for a product
func (cs *CatalogService) GetInventoryLogs(ctx context.Context, productID string) ([]models.InventoryLog, error) {
	return cs.store.GetInventoryLogsByProductID(ctx, productID)
}
