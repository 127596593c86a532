package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// API server
	APIAddr string

	// Database. DatabaseURL selects the durable Postgres store; when it is
	// empty the container falls back to local SQLite at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// Redis (optional, Slack user-directory cache)
	RedisURL     string
	RedisUserTTL time.Duration

	// RabbitMQ (optional, domain event publisher)
	RabbitMQURL string

	// Slack connector
	SlackToken     string
	SlackWorkspace string
	SlackLookback  time.Duration
	SlackPageLimit int

	// Airtable connector
	AirtableAPIKey        string
	AirtableBaseID        string
	AirtableTableName     string
	AirtableAssigneeField string
	AirtableAssigneeValue string

	// OpenAI (optional, import enrichment)
	OpenAIAPIKey string
	OpenAIModel  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		APIAddr: getEnv("API_ADDR", "0.0.0.0:8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("TASKMATRIX_SQLITE_PATH", ""),

		RedisURL:     getEnv("REDIS_URL", ""),
		RedisUserTTL: getDurationEnv("REDIS_USER_CACHE_TTL", 6*time.Hour),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		SlackToken:     firstEnv("SLACK_BOT_TOKEN", "SLACK_USER_TOKEN"),
		SlackWorkspace: getEnv("SLACK_WORKSPACE", "Airr"),
		SlackLookback:  getDurationEnv("SLACK_LOOKBACK", 7*24*time.Hour),
		SlackPageLimit: getIntEnv("SLACK_PAGE_LIMIT", 50),

		AirtableAPIKey:        getEnv("AIRTABLE_API_KEY", ""),
		AirtableBaseID:        getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTableName:     getEnv("AIRTABLE_TABLE_NAME", "Tasks"),
		AirtableAssigneeField: getEnv("AIRTABLE_ASSIGNEE_FIELD", "Assignee"),
		AirtableAssigneeValue: getEnv("AIRTABLE_ASSIGNEE_VALUE", "Roshan"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
