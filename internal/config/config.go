package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Explanation service:
// - LINGUALENS_API_KEY: API key for the explanation provider (may be set later via the API)
// - LINGUALENS_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LINGUALENS_MODEL_QUICK: Model for quick explains (default: gpt-4o-mini)
// - LINGUALENS_MODEL_DEEP: Model for deep explains (default: gpt-4o)
// - LINGUALENS_TIMEOUT: Request timeout in seconds (default: 30)
//
// Store:
// - LINGUALENS_DB_PATH: SQLite database path (default: ./data/lingualens.db)
// - LINGUALENS_CACHE_FALLBACK: Secondary JSON cache file (default: ./data/cache_fallback.json)
//
// Online sources:
// - LINGUALENS_ONLINE_SOURCES: Enable Urban Dictionary / Wikipedia lookups (default: true)
//
// Precompute:
// - LINGUALENS_PRECOMPUTE_CRON: Cron expression for cache warm-up (default: @hourly)
// - LINGUALENS_PRECOMPUTE_LIMIT: History entries warmed per run (default: 20)
//
// Server:
// - LINGUALENS_ADDR: HTTP listen address (default: :8750)
// - LINGUALENS_LOG_LEVEL: debug/info/warn/error (default: info)
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Store      StoreConfig      `json:"store"`
	Sources    SourcesConfig    `json:"sources"`
	Precompute PrecomputeConfig `json:"precompute"`
	Server     ServerConfig     `json:"server"`
}

// LLMConfig holds the configuration for the explanation service client.
type LLMConfig struct {
	APIKey     string `json:"api_key"`
	APIURL     string `json:"api_url"`
	QuickModel string `json:"quick_model"`
	DeepModel  string `json:"deep_model"`
	Timeout    int    `json:"timeout"`
}

type StoreConfig struct {
	DBPath       string `json:"db_path"`
	FallbackPath string `json:"fallback_path"`
}

type SourcesConfig struct {
	EnableOnline bool   `json:"enable_online"`
	UrbanURL     string `json:"urban_url"`
	WikiURL      string `json:"wiki_url"`
}

type PrecomputeConfig struct {
	CronExpr string `json:"cron_expr"`
	Limit    int    `json:"limit"`
}

type ServerConfig struct {
	Addr     string `json:"addr"`
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			APIKey:     getEnvString("LINGUALENS_API_KEY", ""),
			APIURL:     getEnvString("LINGUALENS_API_URL", "https://api.openai.com/v1"),
			QuickModel: getEnvString("LINGUALENS_MODEL_QUICK", "gpt-4o-mini"),
			DeepModel:  getEnvString("LINGUALENS_MODEL_DEEP", "gpt-4o"),
			Timeout:    getEnvInt("LINGUALENS_TIMEOUT", 30),
		},
		Store: StoreConfig{
			DBPath:       getEnvString("LINGUALENS_DB_PATH", "./data/lingualens.db"),
			FallbackPath: getEnvString("LINGUALENS_CACHE_FALLBACK", "./data/cache_fallback.json"),
		},
		Sources: SourcesConfig{
			EnableOnline: getEnvBool("LINGUALENS_ONLINE_SOURCES", true),
			UrbanURL:     getEnvString("LINGUALENS_URBAN_URL", "https://api.urbandictionary.com/v0/define"),
			WikiURL:      getEnvString("LINGUALENS_WIKI_URL", "https://en.wikipedia.org/api/rest_v1/page/summary/"),
		},
		Precompute: PrecomputeConfig{
			CronExpr: getEnvString("LINGUALENS_PRECOMPUTE_CRON", "@hourly"),
			Limit:    getEnvInt("LINGUALENS_PRECOMPUTE_LIMIT", 20),
		},
		Server: ServerConfig{
			Addr:     getEnvString("LINGUALENS_ADDR", ":8750"),
			LogLevel: getEnvString("LINGUALENS_LOG_LEVEL", "info"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}
	return config, nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
