package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Scanner ScannerConfig
	Ai      AIConfig
	Infra   InfraConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogPath       string
	CorsAllowedOrigins string
	BodyLimitMB        int
	RateLimitMax       int
	JwtSecret          string // empty disables bearer auth
}

type StorageConfig struct {
	SessionDir    string
	UploadDir     string
	LockBackend   string // "local" | "redis"
	StateCacheTTL time.Duration
}

type ScannerConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

type AIConfig struct {
	ServiceURL   string
	Timeout      time.Duration
	MaxIdleConns int
}

type InfraConfig struct {
	NatsURL      string
	RedisURL     string
	DatabaseDSN  string
	OtelEnabled  bool
	OtelEndpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogPath:       getEnv("AUDIT_LOG_PATH", "logs/pipeline.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 50),
			RateLimitMax:       getEnvAsInt("RATE_LIMIT_MAX", 30),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			SessionDir:    getEnv("SESSION_DIR", "./data/sessions"),
			UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
			LockBackend:   getEnv("LOCK_BACKEND", "local"),
			StateCacheTTL: getEnvAsDuration("STATE_CACHE_TTL", time.Hour),
		},
		Scanner: ScannerConfig{
			Command: getEnv("SCANNER_COMMAND", "python3"),
			Args:    strings.Fields(getEnv("SCANNER_ARGS", "backend/pdf-security-scanner/gate.py")),
			Timeout: getEnvAsDuration("SCANNER_TIMEOUT", 2*time.Minute),
		},
		Ai: AIConfig{
			ServiceURL:   strings.TrimRight(getEnv("AI_SERVICE_URL", "http://localhost:8000"), "/"),
			Timeout:      getEnvAsDuration("AI_TIMEOUT", 10*time.Minute),
			MaxIdleConns: getEnvAsInt("AI_MAX_IDLE_CONNS", 32),
		},
		Infra: InfraConfig{
			NatsURL:      getEnv("NATS_URL", ""),
			RedisURL:     getEnv("REDIS_URL", ""),
			DatabaseDSN:  getEnv("DB_CONNECTION_STRING", ""),
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "10m") or bare seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[WARN] invalid duration for %s=%q, using %s", key, strValue, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
