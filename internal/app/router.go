package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"courier/internal/handler"
	"courier/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler   *handler.OrderHandler
	PaymentHandler *handler.PaymentHandler
	RefundHandler  *handler.RefundHandler
	WebhookHandler *handler.WebhookHandler
	AdminHandler   *handler.AdminHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("", deps.OrderHandler.ListOrders)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.GET("/:id/status", deps.OrderHandler.GetOrderStatus)
			orders.POST("/:id/accept", deps.OrderHandler.AcceptOrder)
			orders.POST("/:id/status", deps.OrderHandler.UpdateStatus)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
			orders.DELETE("/:id", deps.OrderHandler.DeleteOrder)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.CreatePayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.GET("/order/:id", deps.PaymentHandler.ListPaymentsByOrder)
			payments.GET("/payer/:id", deps.PaymentHandler.ListPaymentsByPayer)
			payments.POST("/:id/verify", deps.PaymentHandler.VerifyPayment)
		}

		// Refund routes.
		refunds := v1.Group("/refunds")
		{
			refunds.POST("", deps.RefundHandler.CreateRefund)
			refunds.GET("/:id", deps.RefundHandler.GetRefund)
			refunds.GET("/order/:id", deps.RefundHandler.ListRefundsByOrder)
		}

		// Gateway webhook routes. No idempotency header here: the
		// reconciliation path is idempotent on its own.
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/:gateway", deps.WebhookHandler.HandleNotification)
		}

		// Admin routes.
		admin := v1.Group("/admin")
		{
			admin.POST("/orders/:id/price", deps.AdminHandler.SetPrice)
			admin.POST("/orders/:id/status", deps.AdminHandler.SetStatus)
			admin.POST("/orders/:id/cancel", deps.AdminHandler.CancelOrder)
		}
	}

	return router
}
