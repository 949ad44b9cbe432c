package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"courier/internal/app"
	"courier/internal/config"
	"courier/internal/gateway"
	"courier/internal/handler"
	"courier/internal/pricing"
	internalRedis "courier/internal/redis"
	"courier/internal/repository/postgres"
	"courier/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	statusCache := internalRedis.NewStatusCache(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	refundRepo := postgres.NewRefundRepository(db)
	txManager := postgres.NewTxManager(db)

	// Initialize gateway adapters.
	gateways := gateway.Registry{}
	if cfg.PayFast.MerchantID != "" {
		pf := gateway.NewPayFast(payfastConfig(cfg), nil)
		gateways[pf.Name()] = pf
	}
	if cfg.Paystack.SecretKey != "" {
		ps := gateway.NewPaystack(paystackConfig(cfg), nil)
		gateways[ps.Name()] = ps
	}

	// Initialize services.
	orderService := service.NewOrderService(orderRepo, statusCache)
	paymentService := service.NewPaymentService(txManager, orderRepo, paymentRepo, gateways)
	refundService := service.NewRefundService(txManager, refundRepo, gateways, lockStore)
	reconciler := service.NewReconciler(paymentService, refundService, paymentRepo, gateways)
	adminService := service.NewAdminService(txManager, statusCache)

	// Pricing presets; an unknown default falls back to standard.
	presets := pricing.Presets()
	defaultRates, err := pricing.PresetConfig(cfg.Pricing.DefaultPreset)
	if err != nil {
		log.Printf("unknown default pricing preset %q, using standard", cfg.Pricing.DefaultPreset)
		defaultRates = presets["standard"]
	}

	// Initialize handlers.
	orderHandler := handler.NewOrderHandler(orderService, presets, defaultRates)
	paymentHandler := handler.NewPaymentHandler(paymentService, reconciler)
	refundHandler := handler.NewRefundHandler(refundService)
	webhookHandler := handler.NewWebhookHandler(reconciler)
	adminHandler := handler.NewAdminHandler(adminService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:   orderHandler,
		PaymentHandler: paymentHandler,
		RefundHandler:  refundHandler,
		WebhookHandler: webhookHandler,
		AdminHandler:   adminHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func payfastConfig(cfg *config.Config) gateway.PayFastConfig {
	return gateway.PayFastConfig{
		MerchantID:  cfg.PayFast.MerchantID,
		MerchantKey: cfg.PayFast.MerchantKey,
		Passphrase:  cfg.PayFast.Passphrase,
		BaseURL:     cfg.PayFast.BaseURL,
		NotifyURL:   cfg.PayFast.NotifyURL,
		ReturnURL:   cfg.PayFast.ReturnURL,
		CancelURL:   cfg.PayFast.CancelURL,
	}
}

func paystackConfig(cfg *config.Config) gateway.PaystackConfig {
	return gateway.PaystackConfig{
		SecretKey:   cfg.Paystack.SecretKey,
		BaseURL:     cfg.Paystack.BaseURL,
		CallbackURL: cfg.Paystack.CallbackURL,
	}
}
