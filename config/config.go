package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	SessionSecret     string `mapstructure:"SESSION_SECRET"`
	SessionTTLMin     int    `mapstructure:"SESSION_TTL_MIN"`

	// Slot store.
	StorePath          string `mapstructure:"STORE_PATH"`
	BookingWindowStart string `mapstructure:"BOOKING_WINDOW_START"`
	BookingWindowEnd   string `mapstructure:"BOOKING_WINDOW_END"`

	// Gemini.
	GeminiAPIKey      string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string `mapstructure:"GEMINI_MODEL"`
	LLMTimeoutSeconds int    `mapstructure:"LLM_TIMEOUT_SECONDS"`

	// Google Cloud (Calendar, Speech, Text-to-Speech).
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	CalendarID               string `mapstructure:"CALENDAR_ID"`

	// Outbound action webhook (n8n).
	WebhookURL string `mapstructure:"WEBHOOK_URL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisEffectsDB int    `mapstructure:"REDIS_EFFECTS_DB"`
	RedisEnabled   bool   `mapstructure:"REDIS_ENABLED"`

	// Transcript history.
	HistoryBackend string `mapstructure:"HISTORY_BACKEND"` // "file" or "mongo"
	HistoryDir     string `mapstructure:"HISTORY_DIR"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	// Git replication of the store file.
	GitHubToken   string `mapstructure:"GITHUB_TOKEN"`
	GitHubRepoURL string `mapstructure:"GITHUB_REPO_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("SESSION_SECRET", "")
	viper.SetDefault("SESSION_TTL_MIN", 30)
	viper.SetDefault("STORE_PATH", "store.json")
	viper.SetDefault("BOOKING_WINDOW_START", "2026-01-07")
	viper.SetDefault("BOOKING_WINDOW_END", "2026-01-21")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("LLM_TIMEOUT_SECONDS", 30)
	viper.SetDefault("CALENDAR_ID", "primary")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_EFFECTS_DB", 3)
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("HISTORY_BACKEND", "file")
	viper.SetDefault("HISTORY_DIR", "history")
	viper.SetDefault("DATABASE_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
