package service

import (
	"context"
	"errors"
	"testing"

	"shopdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRestoreInventoryIncrementsEveryLine(t *testing.T) {
	fs := newFakeStore()
	fs.productStock["p1"] = 5
	fs.productStock["p2"] = 0
	fs.variantStock["v1"] = 2
	fs.items["sale-1"] = []models.SaleItem{
		{SaleID: "sale-1", ProductID: "p1", Quantity: 3},
		{SaleID: "sale-1", ProductID: "p2", VariantID: strPtr("v1"), Quantity: 4},
	}

	r := NewInventoryReconciler(fs)
	result, err := r.RestoreInventory(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Restored)
	assert.Equal(t, 0, result.Failed)

	// Plain items go back on the product, variant items on the variant.
	assert.Equal(t, 8, fs.productStock["p1"])
	assert.Equal(t, 0, fs.productStock["p2"])
	assert.Equal(t, 6, fs.variantStock["v1"])

	// One audit entry per line item.
	require.Len(t, fs.logs, 2)
	for _, entry := range fs.logs {
		assert.Equal(t, models.InventoryLogRestoreCancellation, entry.Type)
		assert.Contains(t, entry.Reason, "sale-1")
	}
	assert.Nil(t, fs.logs[0].VariantID)
	require.NotNil(t, fs.logs[1].VariantID)
	assert.Equal(t, "v1", *fs.logs[1].VariantID)
}

// Current contract: the operation is not idempotent. A second call for the
// same sale restores the same quantities again. Callers gate on the
// cancellation transition to prevent this; flagged as a defect candidate.
func TestRestoreInventoryTwiceDoubleRestores(t *testing.T) {
	fs := newFakeStore()
	fs.productStock["p1"] = 0
	fs.items["sale-1"] = []models.SaleItem{
		{SaleID: "sale-1", ProductID: "p1", Quantity: 2},
	}

	r := NewInventoryReconciler(fs)

	_, err := r.RestoreInventory(context.Background(), "sale-1")
	require.NoError(t, err)
	_, err = r.RestoreInventory(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, 4, fs.productStock["p1"])
	assert.Len(t, fs.logs, 2)
}

// A failure on one line leaves earlier increments in place and continues
// with the remaining lines.
func TestRestoreInventoryContinuesPastItemFailure(t *testing.T) {
	fs := newFakeStore()
	fs.productStock["p1"] = 0
	fs.productStock["p2"] = 0
	fs.productStock["p3"] = 0
	fs.failProductAdjust["p2"] = errors.New("connection reset")
	fs.items["sale-1"] = []models.SaleItem{
		{SaleID: "sale-1", ProductID: "p1", Quantity: 1},
		{SaleID: "sale-1", ProductID: "p2", Quantity: 1},
		{SaleID: "sale-1", ProductID: "p3", Quantity: 1},
	}

	r := NewInventoryReconciler(fs)
	result, err := r.RestoreInventory(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Restored)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, fs.productStock["p1"])
	assert.Equal(t, 0, fs.productStock["p2"])
	assert.Equal(t, 1, fs.productStock["p3"])
	// No audit entry for the failed line.
	assert.Len(t, fs.logs, 2)
}

func TestRestoreInventoryNoItems(t *testing.T) {
	fs := newFakeStore()

	r := NewInventoryReconciler(fs)
	result, err := r.RestoreInventory(context.Background(), "empty-sale")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Restored)
	assert.Empty(t, fs.logs)
}

func TestRestoreInventoryItemsFetchError(t *testing.T) {
	fs := newFakeStore()
	fs.failItemsFetch = errors.New("timeout")

	r := NewInventoryReconciler(fs)
	_, err := r.RestoreInventory(context.Background(), "sale-1")
	assert.Error(t, err)
}
