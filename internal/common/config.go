package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	LLM       LLMConfig
	Inventory InventoryConfig
	Ingest    IngestConfig
	LogLevel  slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite | mysql
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	HealthTimeout    time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// LLMConfig holds the optional briefing summarizer configuration
type LLMConfig struct {
	Provider    string // openai | gemini | none
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// InventoryConfig holds the column-inference and alarm tunables
type InventoryConfig struct {
	VocabularyFile      string
	ExpiryWindowDays    int
	BulkConfirmWorkers  int
	BriefingTopN        int
	BriefingPromptRunes int
}

// IngestConfig holds directory-watch ingestion configuration
type IngestConfig struct {
	WatchDir  string
	Workers   int
	QueueSize int
	Debounce  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", "file:stockwatch.db?_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			HealthTimeout:    getEnvAsDuration("DB_HEALTH_TIMEOUT", 5*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "none")),
			Model:       getEnv("LLM_MODEL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Inventory: InventoryConfig{
			VocabularyFile:      getEnv("VOCABULARY_FILE", ""),
			ExpiryWindowDays:    getEnvAsInt("EXPIRY_WINDOW_DAYS", 7),
			BulkConfirmWorkers:  getEnvAsInt("BULK_CONFIRM_WORKERS", 4),
			BriefingTopN:        getEnvAsInt("BRIEFING_TOP_N", 10),
			BriefingPromptRunes: getEnvAsInt("BRIEFING_PROMPT_RUNES", 4000),
		},
		Ingest: IngestConfig{
			WatchDir:  getEnv("WATCH_DIR", ""),
			Workers:   getEnvAsInt("INGEST_WORKERS", 2),
			QueueSize: getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			Debounce:  getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_URL", c.Database.DSN, Required).
		Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite", "mysql")).
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf("openai", "gemini", "none")).
		Field("EXPIRY_WINDOW_DAYS", c.Inventory.ExpiryWindowDays, Positive).
		Field("BULK_CONFIRM_WORKERS", c.Inventory.BulkConfirmWorkers, Positive)
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	}
	if c.LLM.Provider != "none" {
		v.Field("LLM_API_KEY", c.LLM.APIKey, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
