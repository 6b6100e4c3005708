package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Auction engine
	BiddingWindow  time.Duration
	DecisionWindow time.Duration
	OptionDuration time.Duration

	// Simulation population
	Buyers  int
	Sellers int

	// Agents
	BuyerFunds       float64
	BuyerAppetite    float64
	InteractRange    float64
	SellerMinPrice   float64
	SellerExpected   float64
	SellerHeartbeat  time.Duration
	SellerImpatience time.Duration
	RandomSeed       int64

	// Ledger
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Engine defaults
		BiddingWindow:  getDurationOrDefault("BIDDING_WINDOW", 3*time.Second),
		DecisionWindow: getDurationOrDefault("OFFER_DECISION_WINDOW", 150*time.Millisecond),
		OptionDuration: getDurationOrDefault("OPTION_DURATION", 10*time.Second),

		// Population defaults
		Buyers:  getIntOrDefault("BUYERS", 8),
		Sellers: getIntOrDefault("SELLERS", 3),

		// Agent defaults
		BuyerFunds:       getFloat64OrDefault("BUYER_FUNDS", 100.0),
		BuyerAppetite:    getFloat64OrDefault("BUYER_APPETITE", 10.0),
		InteractRange:    getFloat64OrDefault("INTERACT_RANGE", 2.0),
		SellerMinPrice:   getFloat64OrDefault("SELLER_MIN_PRICE", 0.5),
		SellerExpected:   getFloat64OrDefault("SELLER_EXPECTED_PRICE", 1.5),
		SellerHeartbeat:  getDurationOrDefault("SELLER_HEARTBEAT", 2*time.Second),
		SellerImpatience: getDurationOrDefault("SELLER_IMPATIENCE", 10*time.Second),
		RandomSeed:       getInt64OrDefault("RANDOM_SEED", time.Now().UnixNano()),

		// Ledger defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "optionhouse"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "optionhouse"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "optionhouse"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.BiddingWindow <= 0 {
		return fmt.Errorf("BIDDING_WINDOW must be positive, got %s", c.BiddingWindow)
	}

	if c.DecisionWindow <= 0 {
		return fmt.Errorf("OFFER_DECISION_WINDOW must be positive, got %s", c.DecisionWindow)
	}

	if c.OptionDuration <= 0 {
		return fmt.Errorf("OPTION_DURATION must be positive, got %s", c.OptionDuration)
	}

	if c.Buyers < 1 {
		return fmt.Errorf("BUYERS must be at least 1, got %d", c.Buyers)
	}

	if c.Sellers < 1 {
		return fmt.Errorf("SELLERS must be at least 1, got %d", c.Sellers)
	}

	if c.SellerMinPrice <= 0 || c.SellerExpected < c.SellerMinPrice {
		return fmt.Errorf("seller prices must satisfy 0 < SELLER_MIN_PRICE <= SELLER_EXPECTED_PRICE")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
