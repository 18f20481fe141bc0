package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret-change-me"

type Config struct {
	Env   string
	Port  int
	DBURL string

	// "postgres" or "memory"
	StoreDriver string
	DBMaxConns  int32

	JWTSecret           string
	JWTAccessTTLMinutes int

	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitAuthPerMinute int
	RateLimitAPIPerMinute  int

	ServiceVersion  string
	OTLPEndpoint    string
	OTelSampleRatio float64

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	return Config{
		Env:                    getEnv("APP_ENV", "dev"),
		Port:                   getEnvInt("PORT", 3001),
		DBURL:                  buildDBURL(),
		StoreDriver:            strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DBMaxConns:             int32(getEnvInt("DB_MAX_CONNS", 5)),
		JWTSecret:              getEnv("JWT_SECRET", defaultJWTSecret),
		JWTAccessTTLMinutes:    getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),
		CORSAllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RateLimitAuthPerMinute: getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 20),
		RateLimitAPIPerMinute:  getEnvInt("RATE_LIMIT_API_PER_MINUTE", 300),
		ServiceVersion:         getEnv("SERVICE_VERSION", "dev"),
		OTLPEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio:        getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		AdminUsername:          getEnv("ADMIN_USERNAME", ""),
		AdminEmail:             getEnv("ADMIN_EMAIL", ""),
		AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate rejects settings the server must not start with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	if c.Env != "dev" && c.Env != "test" && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set outside dev")
	}

	if c.JWTAccessTTLMinutes <= 0 {
		return errors.New("JWT_ACCESS_TTL_MINUTES must be positive")
	}

	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be within [0, 1], got %v", c.OTelSampleRatio)
	}

	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "tasktracker")
	pass := getEnv("DB_PASSWORD", "tasktracker")
	name := getEnv("DB_NAME", "tasktracker")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a number, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a number, using %v\n", key, v, fallback)
			return fallback
		}
		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}
	return out
}
