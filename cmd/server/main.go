package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairpin-store/hairpin-backend/config"
	"github.com/hairpin-store/hairpin-backend/internal/app/controller"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/internal/app/service"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/hairpin-store/hairpin-backend/internal/middleware"
	"github.com/hairpin-store/hairpin-backend/internal/router"
	"github.com/hairpin-store/hairpin-backend/internal/scheduler"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/hairpin-store/hairpin-backend/pkg/payment/stripe"
	"github.com/hairpin-store/hairpin-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting Hairpin Store Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Roles and the bootstrap Administrator must exist before serving
	if err := db.Seed(&cfg.Admin); err != nil {
		logger.Fatal("Failed to seed database", err)
	}

	// Redis backs token revocation and the filter options cache. Without it
	// logout is a no-op and the cache is skipped.
	var (
		redisStore  *redis.Store
		blacklist   service.TokenBlacklist
		revocations middleware.RevocationChecker
		cache       service.Cache
	)
	if cfg.Redis.Enabled {
		redisStore, err = redis.Init(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		blacklist = redisStore
		revocations = redisStore
		cache = redisStore
	} else {
		logger.Warn("Redis disabled: token revocation and caching are off")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Payment provider
	gateway, err := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Payment.Stripe.SecretKey,
		BaseURL:   cfg.Payment.Stripe.BaseURL,
		Timeout:   cfg.Payment.Stripe.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to configure payment provider", err)
	}

	// Initialize repositories
	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	roleRepo := repository.NewRoleRepository(database)
	productRepo := repository.NewProductRepository(database)
	cartRepo := repository.NewCartRepository(database)
	orderRepo := repository.NewOrderRepository(database)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		roleRepo,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(database, productRepo, cache)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(database, orderRepo, cartRepo, productRepo, gateway, appMetrics, service.CheckoutConfig{
		ShippingFee:           cfg.Checkout.ShippingFee,
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		TaxRate:               cfg.Checkout.TaxRate,
		Currency:              cfg.Payment.Stripe.Currency,
		PaymentTimeout:        cfg.Payment.Stripe.Timeout,
		RestoreAttempts:       cfg.Checkout.RestoreAttempts,
		RestoreBackoff:        cfg.Checkout.RestoreBackoff,
	})
	roleService := service.NewRoleService(database, userRepo, roleRepo)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)
	adminController := controller.NewAdminController(productService, roleService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, revocations, roleService)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		orderController,
		adminController,
		authMiddleware,
		appMetrics,
		registry,
		cfg,
	).WithReadinessCheck(db.Ping)
	engine, err := r.Setup()
	if err != nil {
		logger.Fatal("Failed to set up router", err)
	}

	// Low stock report
	lowStock := scheduler.NewLowStockScheduler(productService, appMetrics, cfg.Scheduler.LowStockCron, cfg.Scheduler.LowStockThreshold)
	if err := lowStock.Start(); err != nil {
		logger.Fatal("Failed to start low stock scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// In-flight checkouts finish before the database goes away.
	err = srv.Shutdown(ctx)
	lowStock.Stop()
	if redisStore != nil {
		err = multierr.Append(err, redisStore.Close())
	}
	err = multierr.Append(err, db.Close())
	if err != nil {
		logger.Error("Shutdown completed with errors", err)
		os.Exit(1)
	}

	logger.Info("Server stopped successfully")
}
