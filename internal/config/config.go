// Package config loads environment variables at startup.
//
// Every collaborator is optional: a missing DATABASE_URL, REDIS_URL,
// JWT_SECRET or OPENAI_API_KEY disables the features that need it instead of
// stopping the process. Malformed values are still a startup error.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the research service.
type Config struct {
	Port     string
	GRPCPort string

	DatabaseURL string
	RedisURL    string
	AutoMigrate bool

	JWTSecret    string
	CookieSecure bool
	AdminAPIKey  string

	OpenAIAPIKey string
	OpenAIModel  string

	IngestWorkers   int
	IngestQueueSize int
	IngestTimeout   time.Duration
	IngestSchedule  string
	IngestRulesFile string

	SessionSweepSchedule string

	DebugErrors bool
	LogLevel    string
	LogFormat   string
}

// Load reads .env (if present) and the environment, returning a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] .env file not found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                 withDefault(getenv("PORT"), "8080"),
		GRPCPort:             getenv("GRPC_PORT"),
		DatabaseURL:          getenv("DATABASE_URL"),
		RedisURL:             getenv("REDIS_URL"),
		JWTSecret:            getenv("JWT_SECRET"),
		AdminAPIKey:          getenv("ADMIN_API_KEY"),
		OpenAIAPIKey:         getenv("OPENAI_API_KEY"),
		OpenAIModel:          withDefault(getenv("OPENAI_MODEL"), "gpt-4o-mini"),
		IngestSchedule:       getenv("INGEST_SCHEDULE"),
		IngestRulesFile:      getenv("INGEST_RULES_FILE"),
		SessionSweepSchedule: withDefault(getenv("SESSION_SWEEP_SCHEDULE"), "@every 1h"),
		LogLevel:             strings.ToLower(withDefault(getenv("LOG_LEVEL"), "info")),
		LogFormat:            strings.ToLower(withDefault(getenv("LOG_FORMAT"), "text")),
	}

	var err error
	if cfg.AutoMigrate, err = parseBool(getenv, "AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = parseBool(getenv, "COOKIE_SECURE", true); err != nil {
		return nil, err
	}
	if cfg.DebugErrors, err = parseBool(getenv, "DEBUG_ERRORS", false); err != nil {
		return nil, err
	}
	if cfg.IngestWorkers, err = parsePositive(getenv, "INGEST_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.IngestQueueSize, err = parsePositive(getenv, "INGEST_QUEUE_SIZE", 16); err != nil {
		return nil, err
	}

	cfg.IngestTimeout = 10 * time.Minute
	if s := getenv("INGEST_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("INGEST_TIMEOUT must be a positive duration, got %q", s)
		}
		cfg.IngestTimeout = d
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug|info|warn|error, got %q", cfg.LogLevel)
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	s := getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func parsePositive(getenv func(string) string, key string, def int) (int, error) {
	s := getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
