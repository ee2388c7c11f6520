package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
)

// Config holds the server settings read from the environment
type Config struct {
	Port string
	Env  string

	DatabaseURL       string
	DBMaxConns        int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string

	RedisURL string
	CacheTTL time.Duration

	KnowledgeBasePath string
	ShortlistSize     int
	DefaultLanguage   string

	RateLimitRPS   float64
	RateLimitBurst int

	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	CORSAllowedOrigins []string
}

// IsDevelopment reports whether the server runs in development mode
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads .env (if present) and the process environment.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv builds a Config from the current environment and validates it
func FromEnv() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "production"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 25),
		DBMaxIdleConns:      getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:   getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		CacheTTL:            getEnvDuration("CACHE_TTL", 15*time.Minute),
		KnowledgeBasePath:   getEnv("KNOWLEDGE_BASE_PATH", ""),
		ShortlistSize:       getEnvInt("SHORTLIST_SIZE", 3),
		DefaultLanguage:     getEnv("DEFAULT_LANGUAGE", "pt"),
		RateLimitRPS:        getEnvFloat("RATE_LIMIT_RPS", 100.0/60.0),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 200),
		BreakerMaxFailures:  getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerResetTimeout: getEnvDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required keys and value ranges
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.ShortlistSize <= 0 {
		return fmt.Errorf("SHORTLIST_SIZE must be positive, got %d", c.ShortlistSize)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v rps burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.BreakerMaxFailures <= 0 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be positive, got %d", c.BreakerMaxFailures)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
