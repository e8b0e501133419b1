package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/store"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var storeTypes = []string{
	store.TypeMemory, store.TypeMongo, store.TypePostgres, store.TypeSQLite,
	store.TypeBolt, store.TypeFirestore, store.TypeNone,
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	APIKeys            string
	RateLimitPerMinute int
	RequestTimeout     time.Duration

	LoadsFile string

	FMCSABaseURL string
	FMCSAWebKey  string
	FMCSATimeout time.Duration

	StoreType            string
	MongoURI             string
	MongoDB              string
	MongoCollectionCalls string
	DatabaseURL          string
	SQLitePath           string
	BoltPath             string
	FirestoreProjectID   string
	FirestoreCollection  string

	EventsWebhookURL string
	EventsAPIKey     string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		APIKeys:            getEnv("API_KEYS", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),

		LoadsFile: getEnv("LOADS_FILE", "loads.seed.json"),

		FMCSABaseURL: getEnv("FMCSA_BASE_URL", "https://mobile.fmcsa.dot.gov/qc/services"),
		FMCSAWebKey:  getEnv("FMCSA_WEBKEY", ""),
		FMCSATimeout: getEnvDuration("FMCSA_TIMEOUT_SECONDS", 8*time.Second),

		StoreType:            strings.ToLower(getEnv("STORE_TYPE", store.TypeMemory)),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:              getEnv("MONGO_DB", "carrier_sales"),
		MongoCollectionCalls: getEnv("MONGO_COLLECTION_CALLS", "calls"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "data/calls.db"),
		BoltPath:             getEnv("BOLT_PATH", "data/calls.bolt"),
		FirestoreProjectID:   getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCollection:  getEnv("FIRESTORE_COLLECTION_CALLS", "calls"),

		EventsWebhookURL: getEnv("EVENTS_WEBHOOK_URL", ""),
		EventsAPIKey:     getEnv("EVENTS_API_KEY", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	valid := false
	for _, t := range storeTypes {
		if c.StoreType == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("STORE_TYPE %q is not one of %s", c.StoreType, strings.Join(storeTypes, ", "))
	}
	if c.Environment != EnvDevelopment && strings.TrimSpace(strings.ReplaceAll(c.APIKeys, ",", "")) == "" {
		return fmt.Errorf("API_KEYS is required in %s", c.Environment)
	}
	if c.StoreType == store.TypePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with postgres store")
	}
	if c.StoreType == store.TypeFirestore && c.FirestoreProjectID == "" {
		return fmt.Errorf("FIRESTORE_PROJECT_ID is required with firestore store")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// SlogLevel is LOG_LEVEL when set, otherwise debug in development and info
// elsewhere.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.Environment == EnvDevelopment {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultValue
}
