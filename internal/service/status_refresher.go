package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shopdesk/config"
	"shopdesk/internal/models"
	"shopdesk/internal/status"
	"shopdesk/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 1 << 20

// refresherStore is the slice of the datastore the refresher needs.
// *store.Store satisfies it.
type refresherStore interface {
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	GetSalesWithConsignment(ctx context.Context) ([]models.Sale, error)
	UpdateSaleCourierStatus(ctx context.Context, saleID, courierStatus, orderStatus string, checkedAt time.Time) error
	GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error)
}

// statusEventPublisher is implemented by broker.EventPublisher.
type statusEventPublisher interface {
	PublishSaleStatusRefreshed(ctx context.Context, event *models.SaleStatusRefreshedEvent) error
	PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error
	PublishInventoryRestored(ctx context.Context, event *models.InventoryRestoredEvent) error
}

// refreshLocker is implemented by redisclient.Client.
type refreshLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	SetLastRefresh(ctx context.Context, at time.Time) error
}

// OrderStatusRefresher polls the courier webhook for shipped sales, maps the
// raw courier status to the internal order status, and reconciles inventory
// when a sale transitions into cancelled.
type OrderStatusRefresher struct {
	store      refresherStore
	reconciler *InventoryReconciler
	publisher  statusEventPublisher
	locker     refreshLocker
	cfg        config.WebhookConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOrderStatusRefresher creates a new status refresher. publisher and
// locker may be nil; events and bulk locking are then skipped.
func NewOrderStatusRefresher(
	store refresherStore,
	reconciler *InventoryReconciler,
	publisher statusEventPublisher,
	locker refreshLocker,
	cfg config.WebhookConfig,
) *OrderStatusRefresher {
	return &OrderStatusRefresher{
		store:      store,
		reconciler: reconciler,
		publisher:  publisher,
		locker:     locker,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     util.GetLogger(),
	}
}

// RefreshOutcome is the result of one status check.
type RefreshOutcome struct {
	SaleID        string `json:"sale_id"`
	CourierStatus string `json:"courier_status"`
	OrderStatus   string `json:"order_status"`
	Restored      bool   `json:"inventory_restored"`
}

// RefreshSale checks the courier webhook for one sale and persists the
// result. The webhook URL must be configured and the sale must carry a
// consignment id. On a webhook failure the sale's stored status is left
// untouched and a *StatusCheckError is returned.
func (r *OrderStatusRefresher) RefreshSale(ctx context.Context, saleID string) (*RefreshOutcome, error) {
	ctx, span := util.StartSpan(ctx, "OrderStatusRefresher.RefreshSale")
	defer span.End()

	if r.cfg.StatusCheckURL == "" {
		return nil, ErrWebhookNotConfigured
	}

	sale, err := r.store.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.ConsignmentID == nil || *sale.ConsignmentID == "" {
		return nil, ErrNoConsignmentID
	}

	start := time.Now()
	raw, err := r.checkStatus(ctx, *sale.ConsignmentID)
	util.StatusRefreshLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.StatusRefreshFailedTotal.WithLabelValues("webhook").Inc()
		return nil, &StatusCheckError{ConsignmentID: *sale.ConsignmentID, Err: err}
	}

	displayStatus := status.DisplayStatus(raw)
	orderStatus := status.Classify(displayStatus)

	r.logger.Info("Courier status resolved",
		zap.String("sale_id", saleID),
		zap.String("raw_status", raw),
		zap.String("courier_status", displayStatus),
		zap.String("order_status", orderStatus))

	checkedAt := time.Now()
	if err := r.store.UpdateSaleCourierStatus(ctx, saleID, displayStatus, orderStatus, checkedAt); err != nil {
		util.StatusRefreshFailedTotal.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("failed to persist status for sale %s: %w", saleID, err)
	}

	util.StatusRefreshTotal.WithLabelValues(orderStatus).Inc()

	outcome := &RefreshOutcome{
		SaleID:        saleID,
		CourierStatus: displayStatus,
		OrderStatus:   orderStatus,
	}

	// Restoration runs after the persist so the database reflects the
	// cancellation even if reconciliation fails. Gated on the transition so
	// re-refreshing an already cancelled sale never double-restores.
	if orderStatus == models.OrderStatusCancelled && sale.OrderStatus != models.OrderStatusCancelled {
		r.publishCancelled(ctx, sale, displayStatus)

		result, err := r.reconciler.RestoreInventory(ctx, saleID)
		if err != nil {
			r.logger.Error("Inventory restoration failed after cancellation",
				zap.String("sale_id", saleID),
				zap.Error(err))
		} else {
			outcome.Restored = true
			r.publishRestored(ctx, saleID, result)
		}
	}

	r.publishRefreshed(ctx, sale, outcome)
	return outcome, nil
}

// RefreshSummary reports a bulk refresh run.
type RefreshSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// RefreshAll refreshes every sale that has a consignment id, sequentially
// with a fixed delay between webhook calls. Per-sale failures are counted
// and do not abort the batch. Only one bulk refresh runs at a time.
func (r *OrderStatusRefresher) RefreshAll(ctx context.Context) (*RefreshSummary, error) {
	ctx, span := util.StartSpan(ctx, "OrderStatusRefresher.RefreshAll")
	defer span.End()

	if r.cfg.StatusCheckURL == "" {
		return nil, ErrWebhookNotConfigured
	}

	if r.locker != nil {
		acquired, err := r.locker.AcquireLock(ctx, "status-refresh", 10*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire refresh lock: %w", err)
		}
		if !acquired {
			return nil, ErrRefreshInProgress
		}
		defer func() {
			if err := r.locker.ReleaseLock(context.Background(), "status-refresh"); err != nil {
				r.logger.Error("Failed to release refresh lock", zap.Error(err))
			}
		}()
	}

	sales, err := r.store.GetSalesWithConsignment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipped sales: %w", err)
	}

	summary := &RefreshSummary{Total: len(sales)}

	for i, sale := range sales {
		if _, err := r.RefreshSale(ctx, sale.ID); err != nil {
			r.logger.Warn("Status refresh failed",
				zap.String("sale_id", sale.ID),
				zap.Error(err))
			summary.Failed++
		} else {
			summary.Success++
		}

		// Throttle so the webhook is not overwhelmed.
		if i < len(sales)-1 && r.cfg.BulkDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.cfg.BulkDelay):
			}
		}
	}

	if r.locker != nil {
		if err := r.locker.SetLastRefresh(ctx, time.Now()); err != nil {
			r.logger.Warn("Failed to record last refresh time", zap.Error(err))
		}
	}

	r.logger.Info("Bulk status refresh completed",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// checkStatus calls the courier webhook and extracts the raw status string.
func (r *OrderStatusRefresher) checkStatus(ctx context.Context, consignmentID string) (string, error) {
	u, err := url.Parse(r.cfg.StatusCheckURL)
	if err != nil {
		return "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	q := u.Query()
	q.Set("consignment_id", consignmentID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.AuthUsername != "" && r.cfg.AuthPassword != "" {
		req.SetBasicAuth(r.cfg.AuthUsername, r.cfg.AuthPassword)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status check failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBodyBytes))
	if err != nil {
		return "", err
	}

	return extractCourierStatus(body), nil
}

func (r *OrderStatusRefresher) publishRefreshed(ctx context.Context, sale *models.Sale, outcome *RefreshOutcome) {
	if r.publisher == nil {
		return
	}

	event := &models.SaleStatusRefreshedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleStatusRefreshed,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		ConsignmentID: *sale.ConsignmentID,
		CourierStatus: outcome.CourierStatus,
		OrderStatus:   outcome.OrderStatus,
	}

	if err := r.publisher.PublishSaleStatusRefreshed(ctx, event); err != nil {
		r.logger.Error("Failed to publish SaleStatusRefreshed event", zap.Error(err))
	}
}

func (r *OrderStatusRefresher) publishCancelled(ctx context.Context, sale *models.Sale, courierStatus string) {
	if r.publisher == nil {
		return
	}

	items, err := r.store.GetSaleItemsBySaleID(ctx, sale.ID)
	if err != nil {
		r.logger.Error("Failed to load items for SaleCancelled event", zap.Error(err))
	}

	itemData := make([]models.SaleItemData, 0, len(items))
	for _, item := range items {
		itemData = append(itemData, models.SaleItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	event := &models.SaleCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCancelled,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		CourierStatus: courierStatus,
		Items:         itemData,
	}

	if err := r.publisher.PublishSaleCancelled(ctx, event); err != nil {
		r.logger.Error("Failed to publish SaleCancelled event", zap.Error(err))
	}
}

func (r *OrderStatusRefresher) publishRestored(ctx context.Context, saleID string, result *RestoreResult) {
	if r.publisher == nil {
		return
	}

	event := &models.InventoryRestoredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeInventoryRestored,
			Timestamp: time.Now(),
		},
		SaleID:   saleID,
		Restored: result.Restored,
		Failed:   result.Failed,
	}

	if err := r.publisher.PublishInventoryRestored(ctx, event); err != nil {
		r.logger.Error("Failed to publish InventoryRestored event", zap.Error(err))
	}
}
