package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = "8080"
	defaultDatabaseURL      = "hotel.db"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "12h"
	defaultCurrency         = "EUR"
	defaultPaymentTimeout   = "10s"
	defaultWebhookSecret    = "change-me-channel-webhook-secret"
	defaultSyncMaxAttempts  = "8"
	defaultSyncInterval     = "30s"
	defaultSyncBackoff      = "1m"
	defaultCalendarCacheTTL = "5m"
	defaultReminderLead     = "24h"
	defaultLimitedMax       = "2"
	defaultCORSOrigins      = "http://localhost:3000"
)

// AvailabilityPolicy maps a free unit count to a calendar status:
// 0 is booked, 1..LimitedMax is limited, anything above is available.
type AvailabilityPolicy struct {
	LimitedMax int
}

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	JWTSecret         string
	JWTTTL            time.Duration
	AdminEmail        string
	AdminPasswordHash string

	Currency         string
	PaymentAPIURL    string
	PaymentSecretKey string
	PaymentTimeout   time.Duration

	ChannelAPIURL        string
	ChannelAPIKey        string
	ChannelWebhookSecret string
	ChannelSyncMaxTries  int
	ChannelSyncInterval  time.Duration
	ChannelSyncBackoff   time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CalendarCacheTTL time.Duration

	AMQPURL string

	ReminderLead       time.Duration
	CORSAllowedOrigins []string
	Availability       AvailabilityPolicy
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("level=warn msg=\"could not load .env\" error=%q", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	cfg.AdminPasswordHash = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))

	cfg.Currency = strings.ToUpper(strings.TrimSpace(getEnv("CURRENCY", defaultCurrency)))
	cfg.PaymentAPIURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PAYMENT_API_URL")), "/")
	cfg.PaymentSecretKey = strings.TrimSpace(os.Getenv("PAYMENT_SECRET_KEY"))

	cfg.ChannelAPIURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CHANNEL_API_URL")), "/")
	cfg.ChannelAPIKey = strings.TrimSpace(os.Getenv("CHANNEL_API_KEY"))
	cfg.ChannelWebhookSecret = strings.TrimSpace(getEnv("CHANNEL_WEBHOOK_SECRET", defaultWebhookSecret))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = parseDurationEnv("PAYMENT_TIMEOUT", defaultPaymentTimeout); err != nil {
		return nil, err
	}
	if cfg.ChannelSyncInterval, err = parseDurationEnv("CHANNEL_SYNC_INTERVAL", defaultSyncInterval); err != nil {
		return nil, err
	}
	if cfg.ChannelSyncBackoff, err = parseDurationEnv("CHANNEL_SYNC_BACKOFF", defaultSyncBackoff); err != nil {
		return nil, err
	}
	if cfg.CalendarCacheTTL, err = parseDurationEnv("CALENDAR_CACHE_TTL", defaultCalendarCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = parseDurationEnv("REMINDER_LEAD", defaultReminderLead); err != nil {
		return nil, err
	}
	if cfg.ChannelSyncMaxTries, err = parseIntEnv("CHANNEL_SYNC_MAX_ATTEMPTS", defaultSyncMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.Availability.LimitedMax, err = parseIntEnv("AVAILABILITY_LIMITED_MAX", defaultLimitedMax); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("level=info msg=\"config loaded\" env=%s port=%s redis=%t amqp=%t channel=%t",
		cfg.AppEnv, cfg.Port, cfg.RedisAddr != "", cfg.AMQPURL != "", cfg.ChannelAPIURL != "")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.ChannelSyncInterval <= 0 {
		return fmt.Errorf("CHANNEL_SYNC_INTERVAL must be > 0")
	}
	if cfg.ChannelSyncBackoff <= 0 {
		return fmt.Errorf("CHANNEL_SYNC_BACKOFF must be > 0")
	}
	if cfg.ChannelSyncMaxTries < 1 {
		return fmt.Errorf("CHANNEL_SYNC_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD must be > 0")
	}
	if cfg.Availability.LimitedMax < 0 {
		return fmt.Errorf("AVAILABILITY_LIMITED_MAX must be >= 0")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter ISO code")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ChannelWebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release CHANNEL_WEBHOOK_SECRET must be set and not default")
		}
		if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
			return fmt.Errorf("in prod/release ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set")
		}
		if cfg.PaymentAPIURL == "" || cfg.PaymentSecretKey == "" {
			return fmt.Errorf("in prod/release PAYMENT_API_URL and PAYMENT_SECRET_KEY must be set")
		}
	}

	return nil
}

func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
