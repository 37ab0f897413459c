package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine process
type Config struct {
	Engine    EngineConfig
	Sequencer SequencerConfig
	Logger    LoggerConfig
	Memory    MemoryConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
}

// EngineConfig holds matching engine configuration
type EngineConfig struct {
	Markets          []string // BASE/QUOTE pairs registered at startup
	LimitMatchPolicy string   // crossing or exact
	ShutdownTimeout  time.Duration
}

// SequencerConfig holds per-market lane configuration
type SequencerConfig struct {
	Enabled       bool
	BufferSize    int
	SubmitTimeout time.Duration
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level string // DEBUG, INFO, WARN, ERROR
}

// MemoryConfig holds in-memory fill store configuration
type MemoryConfig struct {
	Enabled  bool
	MaxFills int
}

// RedisConfig holds Redis fill store configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	TLSEnabled   bool
	MaxFills     int
	FillChannel  string
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
	Port    string
}

var instance *Config

// Load loads configuration from .env file (if exists) and environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Engine: EngineConfig{
			Markets:          getEnvList("MARKETS", []string{"BTC/USD", "ETH/USD"}),
			LimitMatchPolicy: strings.ToLower(getEnv("LIMIT_MATCH_POLICY", "crossing")),
			ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Sequencer: SequencerConfig{
			Enabled:       getEnvBool("SEQUENCER_ENABLED", true),
			BufferSize:    getEnvInt("SEQUENCER_BUFFER_SIZE", 4096),
			SubmitTimeout: getEnvDuration("SUBMIT_TIMEOUT", 2*time.Second),
		},
		Logger: LoggerConfig{
			Level: strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		},
		Memory: MemoryConfig{
			Enabled:  getEnvBool("MEMORY_ENABLED", true),
			MaxFills: getEnvInt("MEMORY_MAX_FILLS", 1000),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			TLSEnabled:   getEnvBool("REDIS_TLS_ENABLED", false),
			MaxFills:     getEnvInt("REDIS_MAX_FILLS", 10000),
			FillChannel:  getEnv("REDIS_FILL_CHANNEL", "fills"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", false),
			Port:    getEnv("METRICS_PORT", "9090"),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	instance = cfg
	return cfg, nil
}

// Get returns the singleton config instance
func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Engine.Markets) == 0 {
		return fmt.Errorf("MARKETS must list at least one BASE/QUOTE pair")
	}
	for _, m := range c.Engine.Markets {
		base, quote, ok := strings.Cut(m, "/")
		if !ok || strings.TrimSpace(base) == "" || strings.TrimSpace(quote) == "" {
			return fmt.Errorf("MARKETS entry %q is not BASE/QUOTE", m)
		}
	}
	if c.Engine.LimitMatchPolicy != "crossing" && c.Engine.LimitMatchPolicy != "exact" {
		return fmt.Errorf("LIMIT_MATCH_POLICY must be one of: crossing, exact")
	}
	if c.Engine.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}

	if c.Sequencer.BufferSize < 1 {
		return fmt.Errorf("SEQUENCER_BUFFER_SIZE must be > 0")
	}
	if c.Sequencer.SubmitTimeout <= 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be > 0")
	}

	// Validate logger config
	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	if c.Memory.Enabled && c.Memory.MaxFills < 1 {
		return fmt.Errorf("MEMORY_MAX_FILLS must be > 0")
	}
	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST cannot be empty")
		}
		if c.Redis.MaxFills < 1 {
			return fmt.Errorf("REDIS_MAX_FILLS must be > 0")
		}
		if c.Redis.FillChannel == "" {
			return fmt.Errorf("REDIS_FILL_CHANNEL cannot be empty")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Port == "" {
		return fmt.Errorf("METRICS_PORT cannot be empty")
	}

	return nil
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
