package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port              string
	LogLevel          string
	StoreDriver       string
	DBConn            string
	RedisAddr         string
	LockTTL           time.Duration
	JWTSecret         string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPasswordHash string

	PharmacyDirectoryURL string
	VendorDirectoryURL   string
	DoctorDirectoryURL   string
	CommissionLedgerURL  string
	UpstreamTimeout      time.Duration
	UpstreamRetries      uint64

	MinimumAmount     decimal.Decimal
	ReminderAuditCron string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		StoreDriver:          getEnv("STORE_DRIVER", "postgres"),
		DBConn:               getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=scheduling sslmode=disable"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		JWTSecret:            getEnv("JWT_SECRET", "secret"),
		AdminUsername:        getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:    getEnv("ADMIN_PASSWORD_HASH", ""),
		PharmacyDirectoryURL: getEnv("PHARMACY_DIRECTORY_URL", "http://localhost:9001"),
		VendorDirectoryURL:   getEnv("VENDOR_DIRECTORY_URL", "http://localhost:9002"),
		DoctorDirectoryURL:   getEnv("DOCTOR_DIRECTORY_URL", "http://localhost:9003"),
		CommissionLedgerURL:  getEnv("COMMISSION_LEDGER_URL", "http://localhost:9004/LedgerService.asmx"),
		ReminderAuditCron:    getEnv("REMINDER_AUDIT_CRON", "@every 1h"),
	}

	var err error
	if cfg.LockTTL, err = getDuration("LOCK_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamRetries, err = strconv.ParseUint(getEnv("UPSTREAM_RETRIES", "2"), 10, 64); err != nil {
		return nil, fmt.Errorf("UPSTREAM_RETRIES: %w", err)
	}
	if cfg.MinimumAmount, err = decimal.NewFromString(getEnv("MINIMUM_AMOUNT", "100")); err != nil {
		return nil, fmt.Errorf("MINIMUM_AMOUNT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MinimumAmount.IsNegative() {
		return fmt.Errorf("MINIMUM_AMOUNT must not be negative")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
