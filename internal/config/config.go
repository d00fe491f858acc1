package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string `validate:"required,numeric"`
	BaseURL        string `validate:"required,url"`
	DatabaseURL    string `validate:"required"`
	RedisURL       string `validate:"required"`
	KafkaBrokers   string
	NatsURL        string
	JaegerEndpoint string
	SessionTTL     time.Duration `validate:"gt=0"`

	Gateway GatewayConfig
	Log     LogConfig
}

// GatewayConfig holds everything the payment gateway integration needs.
type GatewayConfig struct {
	IntegrationType string `validate:"required,oneof=hosted hosted_modal hosted_embedded direct"`
	MerchantID      string `validate:"required"`
	MerchantSecret  string
	DirectURL       string `validate:"omitempty,url"`
	HostedURL       string `validate:"omitempty,url"`
	CountryCode     string `validate:"required,numeric,len=3"`
	FormResponsive  bool

	// HTTPTimeout of zero keeps the runtime default. Production deployments
	// should set it.
	HTTPTimeout    time.Duration `validate:"gte=0"`
	StreamFallback bool

	RedirectToCheckoutOnPayFail bool
}

type LogConfig struct {
	Level      string `validate:"required"`
	Filename   string `validate:"required"`
	MaxSize    int    `validate:"gte=0"`
	MaxBackups int    `validate:"gte=0"`
	MaxAge     int    `validate:"gte=0"`
	Compress   bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		BaseURL:        os.Getenv("BASE_URL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		NatsURL:        os.Getenv("NATS_URL"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		Gateway: GatewayConfig{
			IntegrationType: getEnv("GATEWAY_INTEGRATION_TYPE", "hosted"),
			MerchantID:      os.Getenv("GATEWAY_MERCHANT_ID"),
			MerchantSecret:  os.Getenv("GATEWAY_MERCHANT_SECRET"),
			DirectURL:       os.Getenv("GATEWAY_DIRECT_URL"),
			HostedURL:       os.Getenv("GATEWAY_HOSTED_URL"),
			CountryCode:     getEnv("GATEWAY_COUNTRY_CODE", "826"),
			FormResponsive:  getEnvAsBool("GATEWAY_FORM_RESPONSIVE", true),
			HTTPTimeout:     getEnvAsDuration("GATEWAY_HTTP_TIMEOUT", 0),
			StreamFallback:  getEnvAsBool("GATEWAY_STREAM_FALLBACK", true),

			RedirectToCheckoutOnPayFail: getEnvAsBool("REDIRECT_TO_CHECKOUT_ON_PAY_FAIL", false),
		},

		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "INFO"),
			Filename:   getEnv("LOG_FILENAME", "logs/checkout-gateway.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the endpoint each integration
// type depends on.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Gateway.IntegrationType {
	case "direct":
		if c.Gateway.DirectURL == "" {
			return fmt.Errorf("invalid configuration: GATEWAY_DIRECT_URL is required for direct integration")
		}
	default:
		if c.Gateway.HostedURL == "" {
			return fmt.Errorf("invalid configuration: GATEWAY_HOSTED_URL is required for %s integration", c.Gateway.IntegrationType)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
