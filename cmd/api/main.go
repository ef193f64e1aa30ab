package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kmerzone/internal/core/cache"
	"kmerzone/internal/core/config"
	"kmerzone/internal/core/database"
	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	catalogadapter "kmerzone/internal/features/catalog/adapters"
	cataloghandler "kmerzone/internal/features/catalog/handler"
	catalogports "kmerzone/internal/features/catalog/ports"
	catalogservice "kmerzone/internal/features/catalog/service"
	checkoutadapter "kmerzone/internal/features/checkout/adapters"
	checkouthandler "kmerzone/internal/features/checkout/handler"
	checkoutports "kmerzone/internal/features/checkout/ports"
	checkoutservice "kmerzone/internal/features/checkout/service"
	deliveryadapter "kmerzone/internal/features/delivery/adapters"
	delivery "kmerzone/internal/features/delivery/domain"
	deliveryhandler "kmerzone/internal/features/delivery/handler"
	deliveryports "kmerzone/internal/features/delivery/ports"
	deliveryservice "kmerzone/internal/features/delivery/service"
	orderadapter "kmerzone/internal/features/orders/adapters"
	orderhandler "kmerzone/internal/features/orders/handler"
	orderports "kmerzone/internal/features/orders/ports"
	orderservice "kmerzone/internal/features/orders/service"
	promoadapter "kmerzone/internal/features/promo/adapters"
	promohandler "kmerzone/internal/features/promo/handler"
	promoports "kmerzone/internal/features/promo/ports"
	promoservice "kmerzone/internal/features/promo/service"
	trackinghandler "kmerzone/internal/features/tracking/handler"
	trackingservice "kmerzone/internal/features/tracking/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const vendorDirectoryTimeout = 5 * time.Second

// stores groups the repositories selected by STORE_DRIVER.
type stores struct {
	products   catalogports.ProductCatalog
	sales      catalogports.FlashSaleRegistry
	promos     promoports.PromoCodeStore
	orders     orderports.OrderRepository
	vendors    deliveryports.VendorStore
	unitOfWork checkoutports.UnitOfWork
	close      func() error
}

// @title Kmerzone API
// @version 1.0
// @description Multi-vendor storefront: catalog pricing, delivery fees, promo codes, checkout, order lifecycle and disputes.
// @contact.name API Support
// @contact.email support@kmerzone.cm
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
	)

	st, err := openStores(cfg)
	if err != nil {
		l.Fatal("Failed to open stores", zap.Error(err))
	}
	defer closeQuietly("stores", st.close)

	idempotency, err := openCache(cfg)
	if err != nil {
		l.Fatal("Failed to open cache", zap.Error(err))
	}
	defer closeQuietly("cache", idempotency.Close)

	events, err := openPublisher(cfg)
	if err != nil {
		l.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer closeQuietly("event publisher", events.Close)

	// Orders
	strict := cfg.Orders.StrictTransitions
	lifecycle := orderservice.NewLifecycleService(st.orders, events, strict)
	disputes := orderservice.NewDisputeService(st.orders, events, strict)

	// Catalog
	catalog := catalogservice.NewCatalogService(st.products, st.sales, st.orders, cfg.Location())

	// Delivery
	vendors := deliveryservice.NewVendorService(st.vendors, st.vendors)
	if cfg.VendorDirectoryURL != "" {
		vendors = deliveryservice.NewVendorService(deliveryadapter.NewHTTPDirectory(cfg.VendorDirectoryURL, vendorDirectoryTimeout), nil)
		l.Info("Using remote vendor directory", zap.String("url", cfg.VendorDirectoryURL))
	}
	fees := deliveryservice.NewFeeCalculator(delivery.FeeSchedule{
		IntraUrban:    decimal.NewFromFloat(cfg.Delivery.IntraUrbanFee),
		InterUrban:    decimal.NewFromFloat(cfg.Delivery.InterUrbanFee),
		UnknownVendor: decimal.NewFromFloat(cfg.Delivery.UnknownVendorFee),
	})

	// Promo codes
	promos := promoservice.NewPromoService(st.promos, catalog.Now)

	// Checkout
	checkout := checkoutservice.NewCheckoutService(checkoutservice.Dependencies{
		Catalog:     catalog,
		Fees:        fees,
		Vendors:     vendors.Directory(),
		Promos:      promos.Registry(),
		Orders:      lifecycle,
		UnitOfWork:  st.unitOfWork,
		Idempotency: idempotency,
	}, checkoutservice.Settings{
		PremiumDiscountPercent: decimal.NewFromFloat(cfg.Delivery.PremiumDiscountPercent),
		IdempotencyTTL:         cfg.Orders.IdempotencyTTL(),
	})

	srv := server.New(cfg)

	// Public routes
	trackinghandler.NewTrackingHandler(trackingservice.NewTrackingService(lifecycle)).Register(srv.App)

	// Registered after the public routes so those match before the identity check.
	api := srv.App.Group("/", identity.Middleware())
	cataloghandler.NewCatalogHandler(catalog).Register(api)
	deliveryhandler.NewVendorHandler(vendors).Register(api)
	promohandler.NewPromoHandler(promos).Register(api)
	checkouthandler.NewCheckoutHandler(checkout).Register(api)
	orderhandler.NewOrderHandler(lifecycle, disputes).Register(api)

	go func() {
		if err := srv.Run(); err != nil {
			l.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down")
	if err := srv.Shutdown(); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}
}

func openStores(cfg *config.AppConfig) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		orders := orderadapter.NewMemoryRepository()
		promos := promoadapter.NewMemoryStore()
		return &stores{
			products:   catalogadapter.NewMemoryProductCatalog(),
			sales:      catalogadapter.NewMemoryFlashSaleRegistry(),
			promos:     promos,
			orders:     orders,
			vendors:    deliveryadapter.NewMemoryDirectory(),
			unitOfWork: checkoutadapter.NewMemoryUnitOfWork(orders, promos),
			close:      func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &stores{
		products:   catalogadapter.NewSQLProductCatalog(db),
		sales:      catalogadapter.NewSQLFlashSaleRegistry(db),
		promos:     promoadapter.NewSQLStore(db),
		orders:     orderadapter.NewSQLRepository(db),
		vendors:    deliveryadapter.NewSQLDirectory(db),
		unitOfWork: checkoutadapter.NewSQLUnitOfWork(db),
		close:      db.Close,
	}, nil
}

func openCache(cfg *config.AppConfig) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryAdapter(), nil
	}
	c, err := cache.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	logger.Get().Info("Redis connection verified")
	return c, nil
}

func openPublisher(cfg *config.AppConfig) (orderports.EventPublisher, error) {
	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		logger.Get().Warn("KAFKA_BROKERS not set, order events are only logged")
		return orderadapter.NewLogPublisher(), nil
	}
	p, err := orderadapter.NewKafkaPublisher(brokers, cfg.Kafka.OrderTopic)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("Publishing order events to Kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.OrderTopic))
	return p, nil
}

func closeQuietly(what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Get().Error("Failed to close "+what, zap.Error(err))
	}
}
