package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreDynamo = "dynamo"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	VoiceAPIURL     string
	VoiceAPITimeout time.Duration
	VerifyWindow    time.Duration

	SessionStore        string // memory | redis | dynamo
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AWSRegion              string
	AWSEndpointURL         string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID         string
	AWSSecretKey           string
	DynamoSessionsTable    string
	RecordingArchiveBucket string // empty disables the S3 archive

	LoginRateLimit float64 // requests per second per client on login endpoints
	LoginRateBurst int
	AllowedOrigins []string // CORS allowed origins
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		VoiceAPIURL:     strings.TrimRight(getEnv("VOICE_API_URL", "http://localhost:5000"), "/"),
		VoiceAPITimeout: time.Duration(getEnvInt("VOICE_API_TIMEOUT_SECONDS", 30)) * time.Second,
		VerifyWindow:    time.Duration(getEnvInt("VERIFY_WINDOW_MINUTES", 15)) * time.Minute,

		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "vc_session"),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:         getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:           getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoSessionsTable:    getEnv("DYNAMO_TABLE_SESSIONS", "console_sessions"),
		RecordingArchiveBucket: getEnv("S3_RECORDING_ARCHIVE_BUCKET", ""),

		LoginRateLimit: getEnvFloat("LOGIN_RATE_LIMIT", 5),
		LoginRateBurst: getEnvInt("LOGIN_RATE_BURST", 10),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
