package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopdesk/config"
	"shopdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shippedSale(id, consignmentID string) *models.Sale {
	return &models.Sale{
		ID:            id,
		InvoiceNumber: "INV-20260829-TEST",
		CustomerName:  "Customer",
		OrderStatus:   models.OrderStatusPending,
		ConsignmentID: strPtr(consignmentID),
	}
}

func newRefresher(fs *fakeStore, webhookURL string) *OrderStatusRefresher {
	return NewOrderStatusRefresher(fs, NewInventoryReconciler(fs), nil, nil, config.WebhookConfig{
		StatusCheckURL: webhookURL,
		RequestTimeout: 5 * time.Second,
	})
}

func TestRefreshSaleDeliveredBecomesPaid(t *testing.T) {
	var gotConsignment string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConsignment = r.URL.Query().Get("consignment_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_status":"Delivered"}`))
	}))
	defer srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-100")
	fs.productStock["p1"] = 0
	fs.items["sale-1"] = []models.SaleItem{{SaleID: "sale-1", ProductID: "p1", Quantity: 2}}

	r := newRefresher(fs, srv.URL)
	outcome, err := r.RefreshSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, "CN-100", gotConsignment)
	assert.Equal(t, models.CourierStatusDelivered, outcome.CourierStatus)
	assert.Equal(t, models.OrderStatusPaid, outcome.OrderStatus)
	assert.False(t, outcome.Restored)

	// Persisted and no inventory touched.
	sale := fs.sales["sale-1"]
	require.NotNil(t, sale.CourierStatus)
	assert.Equal(t, "delivered", *sale.CourierStatus)
	assert.Equal(t, models.OrderStatusPaid, sale.OrderStatus)
	assert.NotNil(t, sale.LastStatusCheck)
	assert.Equal(t, 0, fs.productStock["p1"])
	assert.Empty(t, fs.logs)
}

func TestRefreshSaleReturnTriggersRestoreOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"RETURN to sender"}`))
	}))
	defer srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-200")
	fs.productStock["p1"] = 1
	fs.items["sale-1"] = []models.SaleItem{{SaleID: "sale-1", ProductID: "p1", Quantity: 3}}

	r := newRefresher(fs, srv.URL)
	outcome, err := r.RefreshSale(context.Background(), "sale-1")
	require.NoError(t, err)

	// The raw status passes through the display bucketing unchanged but
	// classifies as cancelled, so stock comes back exactly once.
	assert.Equal(t, "RETURN to sender", outcome.CourierStatus)
	assert.Equal(t, models.OrderStatusCancelled, outcome.OrderStatus)
	assert.True(t, outcome.Restored)
	assert.Equal(t, 4, fs.productStock["p1"])
	assert.Len(t, fs.logs, 1)

	// A second refresh of an already cancelled sale must not double-restore.
	outcome, err = r.RefreshSale(context.Background(), "sale-1")
	require.NoError(t, err)
	assert.False(t, outcome.Restored)
	assert.Equal(t, 4, fs.productStock["p1"])
	assert.Len(t, fs.logs, 1)
}

func TestRefreshSaleWebhookAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "merchant" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"order_status":"In Transit"}`))
	}))
	defer srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-300")

	r := NewOrderStatusRefresher(fs, NewInventoryReconciler(fs), nil, nil, config.WebhookConfig{
		StatusCheckURL: srv.URL,
		AuthUsername:   "merchant",
		AuthPassword:   "secret",
		RequestTimeout: 5 * time.Second,
	})

	outcome, err := r.RefreshSale(context.Background(), "sale-1")
	require.NoError(t, err)
	assert.Equal(t, models.CourierStatusInTransit, outcome.CourierStatus)
	assert.Equal(t, models.OrderStatusPending, outcome.OrderStatus)
}

func TestRefreshSaleWebhookFailureLeavesSaleUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-400")

	r := newRefresher(fs, srv.URL)
	_, err := r.RefreshSale(context.Background(), "sale-1")

	var checkErr *StatusCheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "CN-400", checkErr.ConsignmentID)

	sale := fs.sales["sale-1"]
	assert.Nil(t, sale.CourierStatus)
	assert.Equal(t, models.OrderStatusPending, sale.OrderStatus)
	assert.Nil(t, sale.LastStatusCheck)
	assert.Equal(t, 0, fs.updateCalls)
}

func TestRefreshSaleUnreachableWebhook(t *testing.T) {
	// Grab a port that is closed again by the time the refresher dials it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-500")

	r := newRefresher(fs, deadURL)
	_, err := r.RefreshSale(context.Background(), "sale-1")

	var checkErr *StatusCheckError
	assert.ErrorAs(t, err, &checkErr)
	assert.Equal(t, 0, fs.updateCalls)
}

func TestRefreshSalePreconditions(t *testing.T) {
	fs := newFakeStore()
	fs.sales["unshipped"] = &models.Sale{ID: "unshipped", OrderStatus: models.OrderStatusPending}

	// No webhook configured at all.
	r := newRefresher(fs, "")
	_, err := r.RefreshSale(context.Background(), "unshipped")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)

	// Configured, but the sale was never handed to the courier.
	r = newRefresher(fs, "http://webhook.local/status")
	_, err = r.RefreshSale(context.Background(), "unshipped")
	assert.ErrorIs(t, err, ErrNoConsignmentID)
}

func TestRefreshAllCountsFailuresWithoutAborting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("consignment_id") == "CN-BAD" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"order_status":"Delivered"}`))
	}))
	defer srv.Close()

	fs := newFakeStore()
	fs.sales["sale-1"] = shippedSale("sale-1", "CN-1")
	fs.sales["sale-2"] = shippedSale("sale-2", "CN-BAD")
	fs.sales["sale-3"] = shippedSale("sale-3", "CN-3")
	// Unshipped sales are not part of the batch.
	fs.sales["sale-4"] = &models.Sale{ID: "sale-4", OrderStatus: models.OrderStatusPending}

	r := newRefresher(fs, srv.URL)
	summary, err := r.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, models.OrderStatusPaid, fs.sales["sale-1"].OrderStatus)
	assert.Equal(t, models.OrderStatusPending, fs.sales["sale-2"].OrderStatus)
	assert.Equal(t, models.OrderStatusPaid, fs.sales["sale-3"].OrderStatus)
}
