package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	PayFast  PayFastConfig
	Paystack PaystackConfig
	Pricing  PricingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PayFastConfig holds PayFast merchant credentials and URLs.
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	BaseURL     string
	NotifyURL   string
	ReturnURL   string
	CancelURL   string
}

// PaystackConfig holds Paystack API credentials.
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
}

// PricingConfig selects the default pricing preset applied when a request
// names none.
type PricingConfig struct {
	DefaultPreset string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "courier"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "courier-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		PayFast: PayFastConfig{
			MerchantID:  getEnv("PAYFAST_MERCHANT_ID", ""),
			MerchantKey: getEnv("PAYFAST_MERCHANT_KEY", ""),
			Passphrase:  getEnv("PAYFAST_PASSPHRASE", ""),
			BaseURL:     getEnv("PAYFAST_BASE_URL", "https://sandbox.payfast.co.za"),
			NotifyURL:   getEnv("PAYFAST_NOTIFY_URL", ""),
			ReturnURL:   getEnv("PAYFAST_RETURN_URL", ""),
			CancelURL:   getEnv("PAYFAST_CANCEL_URL", ""),
		},
		Paystack: PaystackConfig{
			SecretKey:   getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL: getEnv("PAYSTACK_CALLBACK_URL", ""),
		},
		Pricing: PricingConfig{
			DefaultPreset: getEnv("PRICING_DEFAULT_PRESET", "standard"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
