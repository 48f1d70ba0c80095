package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv               string
	LogLevel             string
	Port                 string
	DatabaseURL          string
	DBMaxConns           int
	JWTSecret            string
	RedisURL             string
	StoragePath          string
	StorageBaseURL       string
	GeoIPDBPath          string
	DefaultLocale        string
	ArkAPIKey            string
	ArkBaseURL           string
	ArkImageModel        string
	ArkVideoModel        string
	ProviderTimeout      time.Duration
	PollInterval         time.Duration
	PollMaxAttempts      int
	DailyGenerationLimit int
	DispatchConcurrency  int
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	RateLimitPerMin      int
	CORSAllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		Port:                 port,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DBMaxConns:           getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		RedisURL:             strings.TrimSpace(os.Getenv("REDIS_URL")),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:       getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:        getEnv("DEFAULT_LOCALE", "zh"),
		ArkAPIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkBaseURL:           getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkImageModel:        getEnv("ARK_IMAGE_MODEL", "doubao-seedream-3-0-t2i-250415"),
		ArkVideoModel:        getEnv("ARK_VIDEO_MODEL", "doubao-seedance-1-0-pro-250528"),
		ProviderTimeout:      time.Second * time.Duration(getEnvInt("ARK_TIMEOUT_SECONDS", 60)),
		PollInterval:         time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		PollMaxAttempts:      getEnvInt("POLL_MAX_ATTEMPTS", 60),
		DailyGenerationLimit: getEnvInt("DAILY_GENERATION_LIMIT", 100),
		DispatchConcurrency:  getEnvInt("DISPATCH_CONCURRENCY", 32),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if cfg.DailyGenerationLimit <= 0 {
		cfg.DailyGenerationLimit = 100
	}
	if cfg.DispatchConcurrency <= 0 {
		cfg.DispatchConcurrency = 32
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
