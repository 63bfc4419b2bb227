package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mudler/xlog"
)

// Config holds process-level settings read from the environment.
// Business settings (branding, credentials, policy) live in the configurations table.
type Config struct {
	Env  string
	Port string

	DatabaseURL string

	SessionSecret   string
	RestoreTokenTTL time.Duration
	CookieSecure    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL   string
	AMQPQueue string

	CORSOrigins []string
	// TrustedProxies lists the addresses allowed to set X-Forwarded-For.
	// Empty means the peer address is always the client IP.
	TrustedProxies []string

	LoginRateLimit int
	LoginBurst     int

	BootstrapAdminPassword string
	BootstrapAdminEmail    string
}

// Load reads configs/.env and .env when present, then the process environment.
func Load() (*Config, error) {
	for _, path := range []string{"configs/.env", ".env"} {
		if err := godotenv.Load(path); err == nil {
			xlog.Info("Loaded environment file", "path", path)
		}
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		RestoreTokenTTL:        getDuration("RESTORE_TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:           getBool("COOKIE_SECURE", false),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getInt("REDIS_DB", 0),
		AMQPURL:                os.Getenv("AMQP_URL"),
		AMQPQueue:              getEnv("AMQP_QUEUE", "queries.logged"),
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		TrustedProxies:         splitList(os.Getenv("TRUSTED_PROXIES")),
		LoginRateLimit:         getInt("LOGIN_RATE_LIMIT", 10),
		LoginBurst:             getInt("LOGIN_RATE_BURST", 5),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", "superadmin@localhost.local"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "ia_amco"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET is required when APP_ENV=production")
		}
		cfg.SessionSecret = "development-only-session-secret"
		xlog.Warn("SESSION_SECRET not set, using development secret")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		xlog.Warn("Invalid integer in environment, using default", "key", key, "value", v)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
