package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/checkout-gateway/internal/handlers"
	"github.com/akylbek/payment-system/checkout-gateway/internal/middleware"
	"github.com/akylbek/payment-system/checkout-gateway/internal/session"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

const ProcessPath = "/paymentgateway/order/process"

func NewRouter(checkoutHandler *handlers.CheckoutHandler, store *session.Store, sessionTTLSeconds int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())
	r.Use(middleware.Logger())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "checkout-gateway"})
	})

	// Checkout routes. The gateway posts back here without a CSRF token.
	checkout := r.Group("", middleware.Session(store, sessionTTLSeconds))
	{
		checkout.GET(ProcessPath, checkoutHandler.Process)
		checkout.POST(ProcessPath, checkoutHandler.Process)
		checkout.GET("/checkout/messages", checkoutHandler.Messages)
	}

	return r
}
