package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration for carewatch.
// Only this package reads environment variables.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (external log store)
	Database DatabaseConfig

	// Redis (assessment cache, outbound rate limiting)
	Redis RedisConfig

	// External collaborators
	MedSchedule MedScheduleConfig

	// Assessment engine
	Engine EngineConfig

	// HTTP API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MedScheduleConfig points at the medication-schedule service that reports
// per-dose status (taken, scheduled, missed).
type MedScheduleConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RequestLimit  int // max requests per RequestWindow, 0 disables
	RequestWindow time.Duration
}

// EngineConfig controls how assessments are produced and cached
type EngineConfig struct {
	ConfigPath string // YAML thresholds; empty means built-in defaults
	Workers    int    // parallel patients during cohort runs
	CacheTTL   time.Duration
	Schedule   string // cron spec (with seconds) for cohort re-assessment
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	RateLimit float64 // requests per second per server
	RateBurst int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MedSchedule: MedScheduleConfig{
			BaseURL:       getEnv("MEDSCHEDULE_BASE_URL", ""),
			Timeout:       getEnvAsDuration("MEDSCHEDULE_TIMEOUT", "10s"),
			RequestLimit:  getEnvAsInt("MEDSCHEDULE_REQUEST_LIMIT", 0),
			RequestWindow: getEnvAsDuration("MEDSCHEDULE_REQUEST_WINDOW", "1s"),
		},

		Engine: EngineConfig{
			ConfigPath: getEnv("ENGINE_CONFIG", ""),
			Workers:    getEnvAsInt("ENGINE_WORKERS", 8),
			CacheTTL:   getEnvAsDuration("ASSESSMENT_CACHE_TTL", "15m"),
			Schedule:   getEnv("ASSESSMENT_SCHEDULE", "0 */15 * * * *"),
		},

		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 50),
			RateBurst: getEnvAsInt("API_RATE_BURST", 100),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be >= 1")
	}

	if c.API.RateLimit <= 0 || c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be > 0 and API_RATE_BURST >= 1")
	}

	return nil
}

// RequireDatabase reports an error when no log store is configured.
// Commands that read patient history call it; offline commands do not.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// loadEnvFile tries to load .env from the usual locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
