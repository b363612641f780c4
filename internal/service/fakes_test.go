package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopdesk/internal/models"
)

// fakeStore is an in-memory stand-in for the datastore slices the services
// consume.
type fakeStore struct {
	sales        map[string]*models.Sale
	items        map[string][]models.SaleItem
	products     []models.Product
	productStock map[string]int
	variantStock map[string]int
	logs         []models.InventoryLog

	failProductAdjust map[string]error
	failItemsFetch    error
	failUpdate        error

	updateCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:             make(map[string]*models.Sale),
		items:             make(map[string][]models.SaleItem),
		productStock:      make(map[string]int),
		variantStock:      make(map[string]int),
		failProductAdjust: make(map[string]error),
	}
}

func (f *fakeStore) GetSaleByID(_ context.Context, id string) (*models.Sale, error) {
	sale, ok := f.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale not found: %s", id)
	}
	copied := *sale
	return &copied, nil
}

func (f *fakeStore) GetSalesWithConsignment(_ context.Context) ([]models.Sale, error) {
	var out []models.Sale
	for _, sale := range f.sales {
		if sale.ConsignmentID != nil && *sale.ConsignmentID != "" {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSaleCourierStatus(_ context.Context, saleID, courierStatus, orderStatus string, checkedAt time.Time) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	sale, ok := f.sales[saleID]
	if !ok {
		return fmt.Errorf("sale not found: %s", saleID)
	}
	f.updateCalls++
	sale.CourierStatus = &courierStatus
	sale.OrderStatus = orderStatus
	sale.LastStatusCheck = &checkedAt
	return nil
}

func (f *fakeStore) GetSaleItemsBySaleID(_ context.Context, saleID string) ([]models.SaleItem, error) {
	if f.failItemsFetch != nil {
		return nil, f.failItemsFetch
	}
	return f.items[saleID], nil
}

func (f *fakeStore) AdjustProductStock(_ context.Context, productID string, delta int) error {
	if err := f.failProductAdjust[productID]; err != nil {
		return err
	}
	if _, ok := f.productStock[productID]; !ok {
		return errors.New("product not found: " + productID)
	}
	f.productStock[productID] += delta
	return nil
}

func (f *fakeStore) AdjustVariantStock(_ context.Context, variantID string, delta int) error {
	if _, ok := f.variantStock[variantID]; !ok {
		return errors.New("variant not found: " + variantID)
	}
	f.variantStock[variantID] += delta
	return nil
}

func (f *fakeStore) CreateInventoryLog(_ context.Context, entry *models.InventoryLog) error {
	entry.CreatedAt = time.Now()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) GetProducts(_ context.Context) ([]models.Product, error) {
	return f.products, nil
}

// fakeImageStore is an in-memory object store.
type fakeImageStore struct {
	objects      map[string][]byte
	failDownload map[string]error
	uploads      []string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{
		objects:      make(map[string][]byte),
		failDownload: make(map[string]error),
	}
}

func (f *fakeImageStore) Download(_ context.Context, key string) ([]byte, error) {
	if err := f.failDownload[key]; err != nil {
		return nil, err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return data, nil
}

func (f *fakeImageStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = data
	f.uploads = append(f.uploads, key)
	return nil
}
