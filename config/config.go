package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Payment   PaymentConfig
	Checkout  CheckoutConfig
	Scheduler SchedulerConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PaymentConfig struct {
	Stripe StripeConfig
}

type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// CheckoutConfig holds the flat shipping and tax settings applied once per
// order, and how hard a failed checkout tries to put reserved stock back.
type CheckoutConfig struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
	RestoreAttempts       int
	RestoreBackoff        time.Duration
}

type SchedulerConfig struct {
	LowStockCron      string
	LowStockThreshold int
}

// AdminConfig is the bootstrap Administrator account created on first start.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "hairpin"),
			Password: getEnv("DB_PASSWORD", "hairpin"),
			DBName:   getEnv("DB_NAME", "hairpin_store"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "50"), 50),
			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "true")),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:4200")),
		},
		Payment: PaymentConfig{
			Stripe: StripeConfig{
				SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
				BaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
				Currency:  getEnv("PAYMENT_CURRENCY", "usd"),
				Timeout:   parseDuration(getEnv("PAYMENT_TIMEOUT", "15s"), 15*time.Second),
			},
		},
		Checkout: CheckoutConfig{
			ShippingFee:           parseDecimal(getEnv("CHECKOUT_SHIPPING_FEE", "5.99"), decimal.RequireFromString("5.99")),
			FreeShippingThreshold: parseDecimal(getEnv("CHECKOUT_FREE_SHIPPING_THRESHOLD", "50.00"), decimal.RequireFromString("50.00")),
			TaxRate:               parseDecimal(getEnv("CHECKOUT_TAX_RATE", "0"), decimal.Zero),
			RestoreAttempts:       parseInt(getEnv("CHECKOUT_RESTORE_ATTEMPTS", "3"), 3),
			RestoreBackoff:        parseDuration(getEnv("CHECKOUT_RESTORE_BACKOFF", "200ms"), 200*time.Millisecond),
		},
		Scheduler: SchedulerConfig{
			LowStockCron:      getEnv("LOW_STOCK_CRON", "0 8 * * *"),
			LowStockThreshold: parseInt(getEnv("LOW_STOCK_THRESHOLD", "10"), 10),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@hairpinstore.com"),
			Password: getEnv("ADMIN_PASSWORD", "Admin123!"),
			Name:     getEnv("ADMIN_NAME", "Store Administrator"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDecimal(s string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		log.Printf("Invalid amount %s, using default %s", s, fallback.StringFixed(2))
		return fallback
	}
	return d
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
