package worker

import (
	"context"
	"errors"
	"time"

	"shopdesk/internal/broker"
	"shopdesk/internal/models"
	"shopdesk/internal/redisclient"
	"shopdesk/internal/service"
	"shopdesk/internal/store"
	"shopdesk/internal/util"

	"go.uber.org/zap"
)

// StatusRefreshWorker periodically refreshes courier statuses for every
// shipped sale.
type StatusRefreshWorker struct {
	refresher *service.OrderStatusRefresher
	redis     *redisclient.Client
	interval  time.Duration
	logger    *zap.Logger
}

// NewStatusRefreshWorker creates a new status refresh worker. A zero interval
// disables it.
func NewStatusRefreshWorker(
	refresher *service.OrderStatusRefresher,
	redis *redisclient.Client,
	interval time.Duration,
) *StatusRefreshWorker {
	return &StatusRefreshWorker{
		refresher: refresher,
		redis:     redis,
		interval:  interval,
		logger:    util.GetLogger(),
	}
}

// Start runs the refresh loop until the context is cancelled.
func (w *StatusRefreshWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.logger.Info("Status refresh worker disabled")
		return nil
	}

	w.logger.Info("Starting status refresh worker",
		zap.Duration("interval", w.interval))

	// When the last run is recent (e.g. after a restart) wait out the
	// remainder of the interval instead of hammering the webhook.
	first := w.interval
	if last, err := w.redis.GetLastRefresh(ctx); err == nil && !last.IsZero() {
		if since := time.Since(last); since < w.interval {
			first = w.interval - since
		} else {
			first = time.Second
		}
	}

	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Status refresh worker stopped")
			return ctx.Err()
		case <-timer.C:
			w.runOnce(ctx)
			timer.Reset(w.interval)
		}
	}
}

func (w *StatusRefreshWorker) runOnce(ctx context.Context) {
	summary, err := w.refresher.RefreshAll(ctx)
	switch {
	case errors.Is(err, service.ErrRefreshInProgress):
		w.logger.Info("Skipping scheduled refresh, another run is in progress")
	case errors.Is(err, service.ErrWebhookNotConfigured):
		w.logger.Warn("Status check webhook not configured, skipping refresh")
	case err != nil:
		w.logger.Error("Scheduled status refresh failed", zap.Error(err))
	default:
		w.logger.Info("Scheduled status refresh completed",
			zap.Int("total", summary.Total),
			zap.Int("success", summary.Success),
			zap.Int("failed", summary.Failed))
	}
}

// CacheResyncWorker consumes sale events and keeps the Redis stock cache in
// step with the database after cancellations put quantities back.
type CacheResyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewCacheResyncWorker creates a new cache resync worker
func NewCacheResyncWorker(
	consumer *broker.Consumer,
	st *store.Store,
	redis *redisclient.Client,
) *CacheResyncWorker {
	w := &CacheResyncWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCancelled(w.handleSaleCancelled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheResyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache resync worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheResyncWorker) Stop() error {
	w.logger.Info("Stopping cache resync worker")
	return w.consumer.Close()
}

func (w *CacheResyncWorker) handleSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	for _, item := range event.Items {
		if err := w.resyncProduct(ctx, item.ProductID); err != nil {
			w.logger.Error("Failed to resync stock cache",
				zap.String("sale_id", event.SaleID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
	return nil
}

// resyncProduct reads the authoritative stock level from the database and
// rewrites the cache entry.
func (w *CacheResyncWorker) resyncProduct(ctx context.Context, productID string) error {
	product, err := w.store.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}

	stock := product.StockQuantity
	if product.HasVariants {
		stock, err = w.store.GetVariantStockSum(ctx, productID)
		if err != nil {
			return err
		}
	}

	return w.redis.SetStock(ctx, productID, stock)
}
