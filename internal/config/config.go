package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Coupon   CouponConfig
	Redis    RedisConfig
	Payment  PaymentConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	LockTimeout     int // milliseconds, 0 disables
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for coupon files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "coupons/")
}

// CouponConfig holds promo code evaluation settings.
type CouponConfig struct {
	Enabled         bool
	Files           []string
	MinMatches      int
	DiscountPercent string // decimal, e.g. "10" for 10%
}

// RedisConfig holds the catalogue cache configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PaymentConfig holds payment provider settings.
type PaymentConfig struct {
	Provider          string
	APIURL            string
	SecretKey         string
	PublicKey         string
	WebhookSecret     string
	Timeout           time.Duration
	DefaultCurrency   string
	WebhookTolerance  time.Duration
	WebhookMaxRetries int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "kart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			LockTimeout:     getEnvAsInt("DB_LOCK_TIMEOUT", 5000),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "coupons/"),
		},
		Coupon: CouponConfig{
			Enabled:         getEnvAsBool("COUPON_ENABLED", false),
			Files:           getEnvAsList("COUPON_FILES", []string{"data/coupons/couponbase1.gz", "data/coupons/couponbase2.gz", "data/coupons/couponbase3.gz"}),
			MinMatches:      getEnvAsInt("COUPON_MIN_MATCHES", 2),
			DiscountPercent: getEnv("COUPON_DISCOUNT_PERCENT", "10"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Payment: PaymentConfig{
			Provider:          getEnv("PAYMENT_PROVIDER", "stripe"),
			APIURL:            getEnv("PAYMENT_API_URL", "https://api.stripe.com"),
			SecretKey:         getEnv("PAYMENT_SECRET_KEY", ""),
			PublicKey:         getEnv("PAYMENT_PUBLIC_KEY", ""),
			WebhookSecret:     getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			Timeout:           getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second),
			DefaultCurrency:   strings.ToLower(getEnv("PAYMENT_DEFAULT_CURRENCY", "usd")),
			WebhookTolerance:  getEnvAsDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
			WebhookMaxRetries: getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.LockTimeout < 0 {
		return fmt.Errorf("database lock timeout cannot be negative")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Coupon.Enabled {
		if len(c.Coupon.Files) == 0 {
			return fmt.Errorf("coupon files are required when coupons are enabled")
		}
		if c.Coupon.MinMatches < 1 || c.Coupon.MinMatches > len(c.Coupon.Files) {
			return fmt.Errorf("coupon min matches must be between 1 and %d", len(c.Coupon.Files))
		}
		percent, err := strconv.ParseFloat(c.Coupon.DiscountPercent, 64)
		if err != nil || percent <= 0 || percent > 100 {
			return fmt.Errorf("invalid coupon discount percent: %s", c.Coupon.DiscountPercent)
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Payment.Provider != "stripe" {
		return fmt.Errorf("unsupported payment provider: %s", c.Payment.Provider)
	}

	if c.Payment.SecretKey == "" {
		return fmt.Errorf("payment secret key is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}

	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("payment timeout must be positive")
	}

	if len(c.Payment.DefaultCurrency) != 3 {
		return fmt.Errorf("invalid default currency: %s", c.Payment.DefaultCurrency)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration ("10s", "250ms").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList retrieves a comma-separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
