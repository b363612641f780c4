package service

import (
	"context"
	"fmt"

	"shopdesk/internal/models"
	"shopdesk/internal/util"

	"go.uber.org/zap"
)

// reconcilerStore is the slice of the datastore the reconciler needs.
// *store.Store satisfies it.
type reconcilerStore interface {
	GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error)
	AdjustProductStock(ctx context.Context, productID string, delta int) error
	AdjustVariantStock(ctx context.Context, variantID string, delta int) error
	CreateInventoryLog(ctx context.Context, entry *models.InventoryLog) error
}

// InventoryReconciler restores stock for sales that transition into
// cancelled.
type InventoryReconciler struct {
	store  reconcilerStore
	logger *zap.Logger
}

// NewInventoryReconciler creates a new inventory reconciler
func NewInventoryReconciler(store reconcilerStore) *InventoryReconciler {
	return &InventoryReconciler{
		store:  store,
		logger: util.GetLogger(),
	}
}

// RestoreResult summarizes one restoration run.
type RestoreResult struct {
	Restored int
	Failed   int
}

// RestoreInventory puts every line item's quantity back on its variant (when
// present) or its product, appending one audit log entry per item.
//
// The loop is item-by-item and best-effort: a failure on one item is logged
// and counted, earlier increments stay in place, and processing continues
// with the next item.
//
// Not idempotent: calling this twice for the same sale double-restores.
// Callers must invoke it at most once per cancellation transition.
func (r *InventoryReconciler) RestoreInventory(ctx context.Context, saleID string) (*RestoreResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryReconciler.RestoreInventory")
	defer span.End()

	items, err := r.store.GetSaleItemsBySaleID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sale items: %w", err)
	}

	if len(items) == 0 {
		r.logger.Info("No sale items to restore", zap.String("sale_id", saleID))
		return &RestoreResult{}, nil
	}

	result := &RestoreResult{}
	reason := fmt.Sprintf("Restored due to order cancellation (Sale ID: %s)", saleID)

	for _, item := range items {
		if err := r.restoreItem(ctx, item); err != nil {
			r.logger.Error("Failed to restore stock for sale item",
				zap.String("sale_id", saleID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
			util.InventoryRestoreFailedTotal.Inc()
			result.Failed++
			continue
		}

		entry := &models.InventoryLog{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Type:      models.InventoryLogRestoreCancellation,
			Quantity:  item.Quantity,
			Reason:    reason,
		}
		if err := r.store.CreateInventoryLog(ctx, entry); err != nil {
			// The stock increment already happened; losing the audit row is
			// logged but does not undo it.
			r.logger.Error("Failed to append inventory log",
				zap.String("sale_id", saleID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}

		util.InventoryRestoredTotal.Inc()
		result.Restored++
	}

	r.logger.Info("Inventory restoration completed",
		zap.String("sale_id", saleID),
		zap.Int("restored", result.Restored),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (r *InventoryReconciler) restoreItem(ctx context.Context, item models.SaleItem) error {
	if item.VariantID != nil {
		return r.store.AdjustVariantStock(ctx, *item.VariantID, item.Quantity)
	}
	return r.store.AdjustProductStock(ctx, item.ProductID, item.Quantity)
}
