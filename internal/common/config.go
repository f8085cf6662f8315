package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	LLM        LLMConfig
	Processing ProcessingConfig
	Paths      PathsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// StoreConfig holds document-store configuration. The DSN scheme selects the
// backend: postgres:// uses pgx, anything else is treated as a SQLite path.
type StoreConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds completion-backend configuration.
type LLMConfig struct {
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MockMode    bool
}

// ProcessingConfig holds pipeline tuning knobs.
type ProcessingConfig struct {
	MaxWorkers      int
	DebugExtraction bool
	LogResponses    bool
}

// PathsConfig holds working directories.
type PathsConfig struct {
	UploadDir string
	OutputDir string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        getEnv("API_ADDR", ":8000"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:8000"}),
		},
		Store: StoreConfig{
			DSN:              getEnv("DB_URL", "data/financial_data.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLAMA_SERVER_URL", "http://127.0.0.1:8081"),
			Temperature: getEnvAsFloat32("LLAMA_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("LLAMA_TIMEOUT", 120*time.Second),
			MockMode:    getEnvAsBool("LLAMA_MOCK_MODE", false),
		},
		Processing: ProcessingConfig{
			MaxWorkers:      getEnvAsInt("PIPELINE_MAX_WORKERS", 4),
			DebugExtraction: getEnvAsBool("DEBUG_EXTRACTION", false),
			LogResponses:    getEnvAsBool("LOG_LLM_RESPONSES", false),
		},
		Paths: PathsConfig{
			UploadDir: getEnv("UPLOAD_DIR", "data/uploads"),
			OutputDir: getEnv("OUTPUT_DIR", "data/outputs"),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "API_ADDR is required", ErrInvalidInput)
	}
	if c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if !c.LLM.MockMode && c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LLAMA_SERVER_URL is required unless LLAMA_MOCK_MODE=true", ErrInvalidInput)
	}
	if c.Processing.MaxWorkers < 1 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MAX_WORKERS must be >= 1", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
