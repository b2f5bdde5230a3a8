package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// Negotiation
	CounterOfferCap     int           // Max counter-offers per negotiation thread
	MinNegotiablePrice  float64       // Lowest acceptable unit price on negotiable requirements
	AllocationTolerance float64       // Allowed deviation of an allocation plan's percentage sum from 100
	SweepInterval       time.Duration // Cadence of the background expiry sweep

	// Notifications
	NotificationQueueKey string // Redis list the delivery workers consume from

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getEnvInt := func(key string, defaultValue int) int {
		if value, exists := os.LookupEnv(key); exists {
			if parsed, errConv := strconv.Atoi(value); errConv == nil {
				return parsed
			}
		}
		return defaultValue
	}

	getEnvFloat := func(key string, defaultValue float64) float64 {
		if value, exists := os.LookupEnv(key); exists {
			if parsed, errConv := strconv.ParseFloat(value, 64); errConv == nil {
				return parsed
			}
		}
		return defaultValue
	}

	getEnvDuration := func(key string, defaultValue time.Duration) time.Duration {
		if value, exists := os.LookupEnv(key); exists {
			if parsed, errConv := time.ParseDuration(value); errConv == nil {
				return parsed
			}
		}
		return defaultValue
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "nexgpetrolube")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.JwtTTL = getEnvDuration("JWT_TTL", 24*time.Hour)

	cfg.ApiPort = getEnv("API_PORT", "8080")

	cfg.CounterOfferCap = getEnvInt("COUNTER_OFFER_CAP", 10)
	cfg.MinNegotiablePrice = getEnvFloat("MIN_NEGOTIABLE_PRICE", 0.01)
	cfg.AllocationTolerance = getEnvFloat("ALLOCATION_TOLERANCE", 0.01)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)

	cfg.NotificationQueueKey = getEnv("NOTIFICATION_QUEUE_KEY", "notifications:pending")

	cfg.RateLimitBucketSize = getEnvInt("RATE_LIMIT_BUCKET_SIZE", 30)
	cfg.RateLimitRefillRate = getEnvInt("RATE_LIMIT_REFILL_RATE", 10)

	return cfg, nil
}

// Defaults returns a Config with negotiation knobs at their default values.
// Used by tests that don't need Mongo/Redis settings from the environment.
func Defaults() *Config {
	return &Config{
		CounterOfferCap:      10,
		MinNegotiablePrice:   0.01,
		AllocationTolerance:  0.01,
		SweepInterval:        5 * time.Minute,
		NotificationQueueKey: "notifications:pending",
	}
}
