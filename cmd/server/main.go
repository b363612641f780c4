package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopdesk/config"
	"shopdesk/internal/api"
	"shopdesk/internal/broker"
	"shopdesk/internal/redisclient"
	"shopdesk/internal/service"
	"shopdesk/internal/storage"
	"shopdesk/internal/store"
	"shopdesk/internal/util"
	"shopdesk/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shopdesk")

	tp, err := util.InitTracer("shopdesk", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	imageStore, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}
	log.Println("Object storage connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	catalogService := service.NewCatalogService(db, redisClient)
	reconciler := service.NewInventoryReconciler(db)
	salesService := service.NewSalesService(db, reconciler, eventPublisher)
	refresher := service.NewOrderStatusRefresher(db, reconciler, eventPublisher, redisClient, cfg.Webhook)
	optimizer := service.NewBulkImageOptimizer(db, imageStore, eventPublisher, cfg.Image, cfg.Storage.ItemDelay)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	refreshWorker := worker.NewStatusRefreshWorker(refresher, redisClient, cfg.Webhook.RefreshInterval)
	go func() {
		if err := refreshWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Status refresh worker error: %v", err)
		}
	}()

	resyncConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	resyncWorker := worker.NewCacheResyncWorker(resyncConsumer, db, redisClient)
	go func() {
		if err := resyncWorker.Start(workerCtx); err != nil {
			log.Printf("Cache resync worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(catalogService, salesService, refresher, optimizer)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	resyncWorker.Stop()

	log.Println("Server exited")
}
