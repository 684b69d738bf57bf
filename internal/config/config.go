package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Environment        string // ENV: production, development, test
	Port               string
	DatabaseDriver     string // postgres or sqlite
	PostgresURI        string
	SQLitePath         string
	RedisURI           string // empty disables the shared rate limiter and realtime fan-out
	MongoURI           string // empty disables the activity log
	JWTSecret          string
	AuthBypass         bool // accept X-Test-User-Id instead of a token; never in production
	FrontendURL        string
	AllowedOrigins     []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	RateLimitPerMinute int
	LogLevel           string
	LogFormat          string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	logFormat := "console"
	if env == "production" {
		logFormat = "json"
	}

	cfg := &Config{
		Environment:        env,
		Port:               getEnv("PORT", "8080"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		PostgresURI:        getEnv("POSTGRES_URI", "postgres://localhost:5432/nutrilog?sslmode=disable"),
		SQLitePath:         getEnv("SQLITE_PATH", "nutrilog.db"),
		RedisURI:           getEnv("REDIS_URI", ""),
		MongoURI:           getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		AuthBypass:         getEnvBool("AUTH_BYPASS", false),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:     allowedOrigins,
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", logFormat),
	}

	// The bypass header would let anyone act as any user
	if cfg.IsProduction() {
		cfg.AuthBypass = false
	}
	return cfg
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
