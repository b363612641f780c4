package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"shopdesk/config"
	"shopdesk/internal/imaging"
	"shopdesk/internal/models"
	"shopdesk/internal/storage"
	"shopdesk/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// optimizerStore is the slice of the datastore the optimizer needs.
type optimizerStore interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// imageStore is the object storage surface the optimizer needs.
// *storage.Client satisfies it.
type imageStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// optimizeEventPublisher is implemented by broker.EventPublisher.
type optimizeEventPublisher interface {
	PublishImagesOptimized(ctx context.Context, event *models.ImagesOptimizedEvent) error
}

// BulkImageOptimizer walks the product catalog and compresses every
// oversized product image in place.
type BulkImageOptimizer struct {
	store     optimizerStore
	images    imageStore
	publisher optimizeEventPublisher
	imageCfg  config.ImageConfig
	itemDelay time.Duration
	logger    *zap.Logger
}

// NewBulkImageOptimizer creates a new bulk image optimizer. publisher may be
// nil.
func NewBulkImageOptimizer(
	store optimizerStore,
	images imageStore,
	publisher optimizeEventPublisher,
	imageCfg config.ImageConfig,
	itemDelay time.Duration,
) *BulkImageOptimizer {
	return &BulkImageOptimizer{
		store:     store,
		images:    images,
		publisher: publisher,
		imageCfg:  imageCfg,
		itemDelay: itemDelay,
		logger:    util.GetLogger(),
	}
}

// Progress is emitted after every processed image so a caller can render a
// live indicator.
type Progress struct {
	Current         int   `json:"current"`
	Total           int   `json:"total"`
	Compressed      int   `json:"compressed"`
	Skipped         int   `json:"skipped"`
	Errors          int   `json:"errors"`
	OriginalBytes   int64 `json:"original_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// OptimizeReport summarizes a full optimization run.
type OptimizeReport struct {
	Compressed      int   `json:"compressed"`
	Skipped         int   `json:"skipped"`
	Errors          int   `json:"errors"`
	OriginalBytes   int64 `json:"original_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// OptimizeImages compresses every distinct product image over the size
// budget and re-uploads it under the same key. Images already under the
// budget are skipped. Per-image failures are counted and never abort the
// batch. onProgress may be nil.
func (o *BulkImageOptimizer) OptimizeImages(ctx context.Context, onProgress func(Progress)) (*OptimizeReport, error) {
	ctx, span := util.StartSpan(ctx, "BulkImageOptimizer.OptimizeImages")
	defer span.End()

	products, err := o.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	// Multiple products may share one image; process each URL once.
	seen := make(map[string]struct{})
	var urls []string
	for _, p := range products {
		if p.ImageURL == nil || *p.ImageURL == "" || *p.ImageURL == models.PlaceholderImageURL {
			continue
		}
		if _, ok := seen[*p.ImageURL]; ok {
			continue
		}
		seen[*p.ImageURL] = struct{}{}
		urls = append(urls, *p.ImageURL)
	}

	report := &OptimizeReport{}
	if len(urls) == 0 {
		o.logger.Info("No product images to optimize")
		return report, nil
	}

	o.logger.Info("Starting image optimization", zap.Int("total", len(urls)))

	var lastProgress atomic.Int64
	lastProgress.Store(time.Now().UnixNano())
	stopWatchdog := o.startWatchdog(&lastProgress)
	defer stopWatchdog()

	for i, imageURL := range urls {
		if err := o.optimizeOne(ctx, imageURL, report); err != nil {
			o.logger.Warn("Image optimization failed",
				zap.String("image_url", imageURL),
				zap.Error(err))
			util.ImageOptimizeErrorsTotal.Inc()
			report.Errors++
		}

		lastProgress.Store(time.Now().UnixNano())
		if onProgress != nil {
			onProgress(Progress{
				Current:         i + 1,
				Total:           len(urls),
				Compressed:      report.Compressed,
				Skipped:         report.Skipped,
				Errors:          report.Errors,
				OriginalBytes:   report.OriginalBytes,
				CompressedBytes: report.CompressedBytes,
			})
		}

		// Throttle the storage service between items.
		if i < len(urls)-1 && o.itemDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(o.itemDelay):
			}
		}
	}

	saved := report.OriginalBytes - report.CompressedBytes
	o.logger.Info("Image optimization completed",
		zap.Int("compressed", report.Compressed),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Int64("bytes_saved", saved))

	o.publishReport(ctx, report)
	return report, nil
}

func (o *BulkImageOptimizer) optimizeOne(ctx context.Context, imageURL string, report *OptimizeReport) error {
	key, err := storage.KeyFromURL(imageURL)
	if err != nil {
		return err
	}

	data, err := o.images.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	originalSize := int64(len(data))
	report.OriginalBytes += originalSize

	// Already under budget: leave the object untouched.
	if originalSize <= int64(o.imageCfg.MaxOutputBytes) {
		report.CompressedBytes += originalSize
		report.Skipped++
		util.ImagesSkippedTotal.Inc()
		return nil
	}

	res, err := imaging.Compress(data, imaging.Options{
		MaxWidth:       o.imageCfg.MaxWidth,
		MaxHeight:      o.imageCfg.MaxHeight,
		InitialQuality: o.imageCfg.InitialQuality,
		QualityFloor:   o.imageCfg.QualityFloor,
		QualityStep:    o.imageCfg.QualityStep,
		MaxOutputBytes: o.imageCfg.MaxOutputBytes,
	})
	if err != nil {
		return err
	}

	if err := o.images.Upload(ctx, key, res.Bytes, "image/jpeg"); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	compressedSize := int64(len(res.Bytes))
	report.CompressedBytes += compressedSize
	report.Compressed++
	util.ImagesCompressedTotal.Inc()
	if originalSize > compressedSize {
		util.ImageBytesSavedTotal.Add(float64(originalSize - compressedSize))
	}

	o.logger.Info("Image compressed",
		zap.String("key", key),
		zap.Int64("original_bytes", originalSize),
		zap.Int64("compressed_bytes", compressedSize),
		zap.Int("quality", res.Quality))

	return nil
}

// startWatchdog warns when no image has finished for the configured idle
// period. Advisory only; the batch keeps running.
func (o *BulkImageOptimizer) startWatchdog(lastProgress *atomic.Int64) func() {
	if o.imageCfg.StuckAfter <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(o.imageCfg.StuckAfter)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, lastProgress.Load()))
				if idle >= o.imageCfg.StuckAfter {
					o.logger.Warn("Image optimization appears stuck",
						zap.Duration("idle", idle))
				}
			}
		}
	}()

	return func() { close(done) }
}

func (o *BulkImageOptimizer) publishReport(ctx context.Context, report *OptimizeReport) {
	if o.publisher == nil {
		return
	}

	event := &models.ImagesOptimizedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeImagesOptimized,
			Timestamp: time.Now(),
		},
		Compressed:      report.Compressed,
		Skipped:         report.Skipped,
		Errors:          report.Errors,
		OriginalBytes:   report.OriginalBytes,
		CompressedBytes: report.CompressedBytes,
	}

	if err := o.publisher.PublishImagesOptimized(ctx, event); err != nil {
		o.logger.Error("Failed to publish ImagesOptimized event", zap.Error(err))
	}
}
