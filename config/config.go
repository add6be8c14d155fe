package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	// StorageDriver selects the file-storage backend: "dropbox" or "minio".
	StorageDriver string

	// Dropbox configuration. The token endpoint and API hosts are
	// overridable so tests can point them at a local server.
	DropboxAppKey       string
	DropboxAppSecret    string
	DropboxRefreshToken string
	DropboxAccessToken  string // static fallback when the refresh exchange fails
	DropboxAPIURL       string
	DropboxContentURL   string
	DropboxTokenURL     string

	// MinIO configuration (self-hosted backend).
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis configuration.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Gmail configuration for outbound notifications.
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailFrom         string
	GmailAPIURL       string
	GmailTokenURL     string

	// Staff authentication.
	JWTSecret     string
	AllowlistPath string

	// Demo workflow tuning.
	DemoCacheTTL     time.Duration
	CleanupRetention time.Duration
	CronSecret       string

	// Logging.
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		StorageDriver: getEnv("STORAGE_DRIVER", "dropbox"),

		DropboxAppKey:       getEnv("DROPBOX_APP_KEY", ""),
		DropboxAppSecret:    os.Getenv("DROPBOX_APP_SECRET"),
		DropboxRefreshToken: os.Getenv("DROPBOX_REFRESH_TOKEN"),
		DropboxAccessToken:  os.Getenv("DROPBOX_ACCESS_TOKEN"),
		DropboxAPIURL:       getEnv("DROPBOX_API_URL", "https://api.dropboxapi.com"),
		DropboxContentURL:   getEnv("DROPBOX_CONTENT_URL", "https://content.dropboxapi.com"),
		DropboxTokenURL:     getEnv("DROPBOX_TOKEN_URL", "https://api.dropboxapi.com/oauth2/token"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "demodesk"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
		GmailRefreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
		GmailFrom:         getEnv("GMAIL_FROM", ""),
		GmailAPIURL:       getEnv("GMAIL_API_URL", "https://gmail.googleapis.com"),
		GmailTokenURL:     getEnv("GMAIL_TOKEN_URL", "https://oauth2.googleapis.com/token"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		AllowlistPath: getEnv("ALLOWLIST_PATH", "allowlist.conf"),

		DemoCacheTTL:     getEnvDuration("DEMO_CACHE_TTL", 5*time.Minute),
		CleanupRetention: getEnvDuration("CLEANUP_RETENTION", 30*24*time.Hour),
		CronSecret:       os.Getenv("CRON_SECRET"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
