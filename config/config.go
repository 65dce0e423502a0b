package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Session   SessionConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	S3        S3Config
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogFormat   string
}

// APIConfig points at the Marché241 REST backend
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// ShopCacheTTL bounds how long a shop profile is served from the store; 0 disables caching
	ShopCacheTTL time.Duration
}

type SessionConfig struct {
	// Store selects the visitor key-value backend: memory, redis or postgres
	Store         string
	VisitorCookie string
	CookieDomain  string
	CookieSecure  bool
}

type AuthConfig struct {
	TokenCookie    string
	ResendCooldown time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type SchedulerConfig struct {
	SweepSpec string

	// CartIdle is how long an unused visitor cart client stays in memory
	CartIdle time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		API: APIConfig{
			BaseURL:      strings.TrimRight(getEnv("MARCHE241_API_URL", "http://localhost:3000/api"), "/"),
			Timeout:      parseDuration(getEnv("MARCHE241_API_TIMEOUT", "15s"), 15*time.Second),
			UserAgent:    getEnv("MARCHE241_API_USER_AGENT", "marche241-gateway/1.0"),
			ShopCacheTTL: parseDuration(getEnv("MARCHE241_SHOP_CACHE_TTL", "5m"), 5*time.Minute),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", "memory"),
			VisitorCookie: getEnv("SESSION_VISITOR_COOKIE", "m241_visitor"),
			CookieDomain:  getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookieSecure:  parseBool(getEnv("SESSION_COOKIE_SECURE", "false")),
		},
		Auth: AuthConfig{
			TokenCookie:    getEnv("AUTH_TOKEN_COOKIE", "m241_token"),
			ResendCooldown: parseDuration(getEnv("AUTH_RESEND_COOLDOWN", "60s"), time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "marche241"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "marche241_gateway"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-west-3"),
			Bucket:          getEnv("AWS_S3_BUCKET", "marche241-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Scheduler: SchedulerConfig{
			SweepSpec: getEnv("SESSION_SWEEP_CRON", "@every 1h"),
			CartIdle:  parseDuration(getEnv("CART_CLIENT_IDLE", "30m"), 30*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the gateway cannot start with
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want memory, redis or postgres)", c.Session.Store)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("MARCHE241_API_URL is required")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using 0", s)
		return 0
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
