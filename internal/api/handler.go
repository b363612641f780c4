package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"shopdesk/internal/service"
	"shopdesk/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	sales     *service.SalesService
	refresher *service.OrderStatusRefresher
	optimizer *service.BulkImageOptimizer

	optimizeBusy atomic.Bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	sales *service.SalesService,
	refresher *service.OrderStatusRefresher,
	optimizer *service.BulkImageOptimizer,
) *Handler {
	return &Handler{
		catalog:   catalog,
		sales:     sales,
		refresher: refresher,
		optimizer: optimizer,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.GET("/products/low-stock", h.listLowStockProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.POST("/products/:id/restore", h.restoreProduct)
		v1.GET("/products/:id/variants", h.listVariants)
		v1.POST("/products/:id/variants", h.createVariant)
		v1.GET("/products/:id/inventory-logs", h.listInventoryLogs)

		v1.GET("/sales", h.listSales)
		v1.POST("/sales", h.createSale)
		v1.GET("/sales/stats", h.getSalesStats)
		v1.GET("/sales/:id", h.getSale)
		v1.DELETE("/sales/:id", h.deleteSale)
		v1.PUT("/sales/:id/consignment", h.setConsignment)
		v1.PATCH("/sales/:id/status", h.setOrderStatus)
		v1.POST("/sales/:id/refresh-status", h.refreshSaleStatus)
		v1.POST("/sales/refresh-statuses", h.refreshAllStatuses)

		v1.POST("/images/optimize", h.optimizeImages)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts handles listing live products. A ?sku= query looks up a
// single product instead.
func (h *Handler) listProducts(c *gin.Context) {
	if sku := c.Query("sku"); sku != "" {
		product, err := h.catalog.GetProductBySKU(c.Request.Context(), sku)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Product not found",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": []interface{}{product}})
		return
	}

	products, err := h.catalog.GetProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// getProduct handles get product by ID, including its variants
func (h *Handler) getProduct(c *gin.Context) {
	product, variants, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	stock, err := h.catalog.EffectiveStock(c.Request.Context(), product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute stock",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":         product,
		"variants":        variants,
		"effective_stock": stock,
	})
}

// updateProduct handles product updates
func (h *Handler) updateProduct(c *gin.Context) {
	product, _, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	if err := c.ShouldBindJSON(product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	product.ID = c.Param("id")

	if err := h.catalog.UpdateProduct(c.Request.Context(), product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// deleteProduct handles product soft-deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// restoreProduct clears a product's soft-delete flag
func (h *Handler) restoreProduct(c *gin.Context) {
	if err := h.catalog.RestoreProduct(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to restore product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

// listLowStockProducts lists products at or under their threshold
func (h *Handler) listLowStockProducts(c *gin.Context) {
	products, err := h.catalog.GetLowStockProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list low-stock products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// listVariants returns a product's variants
func (h *Handler) listVariants(c *gin.Context) {
	_, variants, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

// createVariant adds a variant to a product
func (h *Handler) createVariant(c *gin.Context) {
	var req service.CreateVariantRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	variant, err := h.catalog.CreateVariant(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create variant",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, variant)
}

// listInventoryLogs returns a product's stock movement audit trail
func (h *Handler) listInventoryLogs(c *gin.Context) {
	logs, err := h.catalog.GetInventoryLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list inventory logs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// listSales handles listing sales, optionally filtered by order status
func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.sales.GetSales(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list sales",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

// createSale handles invoice recording
func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create sale",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, sale)
}

// getSale handles get sale by ID
func (h *Handler) getSale(c *gin.Context) {
	sale, items, err := h.sales.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Sale not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sale":  sale,
		"items": items,
	})
}

// deleteSale handles sale deletion
func (h *Handler) deleteSale(c *gin.Context) {
	if err := h.sales.DeleteSale(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete sale",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// setConsignment assigns a courier consignment id to a sale
func (h *Handler) setConsignment(c *gin.Context) {
	var req struct {
		ConsignmentID string `json:"consignment_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.sales.SetConsignment(c.Request.Context(), c.Param("id"), req.ConsignmentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to set consignment",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// setOrderStatus manually overrides a sale's order status
func (h *Handler) setOrderStatus(c *gin.Context) {
	var req struct {
		OrderStatus string `json:"order_status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.sales.SetOrderStatus(c.Request.Context(), c.Param("id"), req.OrderStatus); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update order status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// getSalesStats returns the dashboard revenue summary
func (h *Handler) getSalesStats(c *gin.Context) {
	stats, err := h.sales.GetStats(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// refreshSaleStatus checks the courier webhook for one sale
func (h *Handler) refreshSaleStatus(c *gin.Context) {
	outcome, err := h.refresher.RefreshSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.refreshError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// refreshAllStatuses runs a bulk status refresh across shipped sales
func (h *Handler) refreshAllStatuses(c *gin.Context) {
	summary, err := h.refresher.RefreshAll(c.Request.Context())
	if err != nil {
		h.refreshError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) refreshError(c *gin.Context, err error) {
	var checkErr *service.StatusCheckError

	switch {
	case errors.Is(err, service.ErrWebhookNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoConsignmentID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &checkErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Status check failed",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to refresh status",
			"details": err.Error(),
		})
	}
}

// optimizeImages runs the bulk image optimizer. Only one run at a time.
func (h *Handler) optimizeImages(c *gin.Context) {
	if !h.optimizeBusy.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrOptimizeInProgress.Error()})
		return
	}
	defer h.optimizeBusy.Store(false)

	report, err := h.optimizer.OptimizeImages(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to optimize images",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
