package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Invites       InviteConfig
	PasswordReset PasswordResetConfig
	Geo           GeoConfig
	AWS           AWSConfig
	Worker        WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	AppBaseURL         string // prefix for accept/reset links; empty keeps them relative
	CookieSecure       bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32 // 0 keeps the pgxpool default
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// InviteConfig controls invite lifetime and the per-actor issue limiter.
type InviteConfig struct {
	TTL              time.Duration
	RateLimit        int
	RateWindow       time.Duration
	RateLimitBackend string // memory | redis
}

// PasswordResetConfig controls reset token lifetime.
type PasswordResetConfig struct {
	TTL         time.Duration
	ExposeLinks bool // return the reset link in the forgot-password response (no mailer wired)
}

// GeoConfig selects the IP geolocation provider.
type GeoConfig struct {
	Provider  string // none | maxmind | ipapi
	DBPath    string // GeoLite2-Country.mmdb for maxmind
	IPAPIURL  string
	CacheSize int
	Timeout   time.Duration
}

// AWSConfig holds AWS credentials and the exports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	PollTimeout time.Duration
	MaxRetries  int
	Embedded    bool // run the export worker inside the API process
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			AppBaseURL:         strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
			CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lumen"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Invites: InviteConfig{
			TTL:              getEnvDuration("INVITE_TTL", 7*24*time.Hour),
			RateLimit:        getEnvInt("INVITE_RATE_LIMIT", 10),
			RateWindow:       getEnvDuration("INVITE_RATE_WINDOW", time.Minute),
			RateLimitBackend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		},
		PasswordReset: PasswordResetConfig{
			TTL:         getEnvDuration("PASSWORD_RESET_TTL", 30*time.Minute),
			ExposeLinks: getEnvBool("PASSWORD_RESET_EXPOSE_LINKS", true),
		},
		Geo: GeoConfig{
			Provider:  strings.ToLower(getEnv("GEO_PROVIDER", "none")),
			DBPath:    getEnv("GEOIP_DB_PATH", ""),
			IPAPIURL:  getEnv("GEO_IPAPI_URL", "http://ip-api.com/json/"),
			CacheSize: getEnvInt("GEO_CACHE_SIZE", 10000),
			Timeout:   getEnvDuration("GEO_TIMEOUT", 2*time.Second),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", "lumen-exports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Worker: WorkerConfig{
			PollTimeout: getEnvDuration("WORKER_POLL_TIMEOUT", 5*time.Second),
			MaxRetries:  getEnvInt("WORKER_MAX_RETRIES", 3),
			Embedded:    getEnvBool("WORKER_EMBEDDED", false),
		},
	}
	if cfg.Invites.RateLimitBackend != "memory" && cfg.Invites.RateLimitBackend != "redis" {
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", cfg.Invites.RateLimitBackend)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

// getEnvDuration accepts Go duration syntax (e.g. "168h", "90s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
