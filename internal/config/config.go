package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	// BaseURL is where callback success/error redirects land (the UI).
	BaseURL string

	// EncryptionKey, when set, wins over the persisted key file. Leaving
	// it empty is only safe for single-instance deployments: multiple
	// instances must share an externally supplied key.
	EncryptionKey     string
	EncryptionKeyFile string

	// RedisAddr empty selects the in-memory state store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProviderTimeout time.Duration
	PublishTimeout  time.Duration

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		ServiceName:          getEnv("SERVICE_NAME", "social-auth"),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8080"),
		EncryptionKey:        os.Getenv("ENCRYPTION_KEY"),
		EncryptionKeyFile:    getEnv("ENCRYPTION_KEY_FILE", ".encryption_key"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		ProviderTimeout:      getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		PublishTimeout:       getDuration("PUBLISH_TIMEOUT", 30*time.Second),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if u, err := url.Parse(cfg.BaseURL); err != nil || !u.IsAbs() {
		return Config{}, fmt.Errorf("BASE_URL must be an absolute URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
