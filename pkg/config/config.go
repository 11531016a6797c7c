package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers for the dispatch record store
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Change feed transports
const (
	FeedRedis  = "redis"
	FeedMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Dispatch DispatchConfig
	Triage   TriageConfig
	Notify   NotifyConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host      string
	Port      int
	RateLimit string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DispatchConfig holds emergency dispatch settings
type DispatchConfig struct {
	Store       string
	Feed        string
	FanoutLimit int
	SessionTTL  time.Duration
	Seed        bool
}

// TriageConfig holds settings for the triage assistant proxy
type TriageConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string
	SpeechEnabled   bool
	RateLimit       string
	Timeout         time.Duration
}

// NotifyConfig holds WhatsApp Cloud API settings for alerting responders
// outside the app. Alerts are off unless both credentials are set.
type NotifyConfig struct {
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppBaseURL       string
	WhatsAppTemplate      string
	WhatsAppLanguage      string
	AppLink               string
}

// Enabled reports whether responder alerts can be sent
func (c *NotifyConfig) Enabled() bool {
	return c.WhatsAppAccessToken != "" && c.WhatsAppPhoneNumberID != ""
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "0.0.0.0"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			RateLimit: getEnv("API_RATE_LIMIT", "120-M"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "first_responder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Dispatch: DispatchConfig{
			Store:       getEnv("DISPATCH_STORE", StorePostgres),
			Feed:        getEnv("DISPATCH_FEED", FeedRedis),
			FanoutLimit: getEnvAsInt("DISPATCH_FANOUT_LIMIT", 5),
			SessionTTL:  getEnvAsDuration("DISPATCH_SESSION_TTL", 2*time.Hour),
			Seed:        getEnvAsBool("DISPATCH_SEED", false),
		},
		Triage: TriageConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			ChatModel:       getEnv("TRIAGE_CHAT_MODEL", "gpt-4o-mini"),
			TranscribeModel: getEnv("TRIAGE_TRANSCRIBE_MODEL", "whisper-1"),
			SpeechModel:     getEnv("TRIAGE_SPEECH_MODEL", "tts-1"),
			SpeechVoice:     getEnv("TRIAGE_SPEECH_VOICE", "alloy"),
			SpeechEnabled:   getEnvAsBool("TRIAGE_SPEECH_ENABLED", false),
			RateLimit:       getEnv("TRIAGE_RATE_LIMIT", "30-M"),
			Timeout:         getEnvAsDuration("TRIAGE_TIMEOUT", 30*time.Second),
		},
		Notify: NotifyConfig{
			WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v18.0"),
			WhatsAppTemplate:      getEnv("WHATSAPP_ALERT_TEMPLATE", ""),
			WhatsAppLanguage:      getEnv("WHATSAPP_ALERT_LANGUAGE", "en"),
			AppLink:               getEnv("RESPONDER_APP_LINK", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "first-responder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the dispatch workflow cannot run with
func (c *Config) Validate() error {
	switch c.Dispatch.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown DISPATCH_STORE %q", c.Dispatch.Store)
	}
	switch c.Dispatch.Feed {
	case FeedRedis, FeedMemory:
	default:
		return fmt.Errorf("unknown DISPATCH_FEED %q", c.Dispatch.Feed)
	}
	if c.Dispatch.FanoutLimit < 1 {
		return fmt.Errorf("DISPATCH_FANOUT_LIMIT must be positive, got %d", c.Dispatch.FanoutLimit)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
