package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/api"
	"github.com/akylbek/payment-system/checkout-gateway/internal/checkout"
	"github.com/akylbek/payment-system/checkout-gateway/internal/config"
	"github.com/akylbek/payment-system/checkout-gateway/internal/events"
	"github.com/akylbek/payment-system/checkout-gateway/internal/gateway"
	"github.com/akylbek/payment-system/checkout-gateway/internal/handlers"
	"github.com/akylbek/payment-system/checkout-gateway/internal/render"
	"github.com/akylbek/payment-system/checkout-gateway/internal/repository"
	"github.com/akylbek/payment-system/checkout-gateway/internal/restoration"
	"github.com/akylbek/payment-system/checkout-gateway/internal/session"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
	"github.com/akylbek/payment-system/checkout-gateway/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry("checkout-gateway", cfg); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting checkout gateway",
		zap.String("integration_type", cfg.Gateway.IntegrationType),
	)

	mode, err := gateway.ParseIntegrationMode(cfg.Gateway.IntegrationType)
	if err != nil {
		telemetry.Logger.Fatal("Invalid integration type", zap.Error(err))
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	orderRepo := repository.NewOrderRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	if err := orderRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize orders table", zap.Error(err))
	}
	if err := quoteRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize quotes table", zap.Error(err))
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	// Connect to Kafka. Messages carry their own topic.
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Connect to NATS (optional)
	var publisher events.Publisher
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		publisher = nc
	}

	notifier := events.NewNotifier(kafkaWriter, publisher, redisClient)
	sessions := session.NewStore(redisClient, orderRepo, cfg.SessionTTL)
	renderer := render.NewRenderer(cfg.BaseURL)

	client := transport.NewClient(transport.DefaultStrategies(cfg.Gateway.HTTPTimeout, cfg.Gateway.StreamFallback)...)
	gw := gateway.New(gateway.Config{
		Mode:           mode,
		MerchantID:     cfg.Gateway.MerchantID,
		MerchantSecret: cfg.Gateway.MerchantSecret,
		DirectURL:      cfg.Gateway.DirectURL,
		HostedURL:      cfg.Gateway.HostedURL,
		CountryCode:    cfg.Gateway.CountryCode,
		ReturnURL:      renderer.URL(api.ProcessPath),
		FormResponsive: cfg.Gateway.FormResponsive,
	}, client)

	controller := checkout.NewController(
		checkout.Config{RestoreToCart: cfg.Gateway.RedirectToCheckoutOnPayFail},
		gw,
		restoration.NewService(orderRepo, quoteRepo),
		renderer,
		notifier,
		notifier,
	)

	r := api.NewRouter(handlers.NewCheckoutHandler(controller), sessions, int(cfg.SessionTTL.Seconds()))

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Checkout gateway starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
