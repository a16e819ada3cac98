package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the settings read from the environment at startup.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	FrontendURL string
	AdminURL    string

	SiteName string
	SiteURL  string

	RedisURL string
	CartTTL  time.Duration

	KafkaBrokers       []string
	KafkaConsumerGroup string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	StaffEmail   string

	FirebaseBucket string
}

func LoadEnv() error {
	// .env is optional; deployed environments set variables directly.
	_ = godotenv.Load()
	return nil
}

// Load reads Config from the environment, applying defaults.
func Load() Config {
	return Config{
		AppEnv:             GetEnv("APP_ENV", "production"),
		Port:               GetEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		FrontendURL:        GetEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminURL:           os.Getenv("ADMIN_URL"),
		SiteName:           GetEnv("SITE_NAME", "ME Gift Packs"),
		SiteURL:            GetEnv("SITE_URL", "https://megiftpacks.com"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CartTTL:            GetDuration("CART_TTL", 7*24*time.Hour),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaConsumerGroup: GetEnv("KAFKA_CONSUMER_GROUP", "giftshop-backend"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           GetEnv("SMTP_PORT", "587"),
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
		StaffEmail:         os.Getenv("STAFF_EMAIL"),
		FirebaseBucket:     os.Getenv("FIREBASE_STORAGE_BUCKET"),
	}
}

// AllowedOrigins is the CORS allow-list: the storefront and admin frontends.
func (c Config) AllowedOrigins() []string {
	origins := []string{c.FrontendURL}
	if c.AdminURL != "" {
		origins = append(origins, c.AdminURL)
	}
	return origins
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ValidateEnv checks that critical environment variables are set.
// Missing optional variables are logged as warnings.
func ValidateEnv(logger *zap.Logger) error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	warnings := map[string]string{
		"FRONTEND_URL":            "CORS may not work correctly",
		"REDIS_URL":               "carts are kept in memory only",
		"KAFKA_BROKERS":           "order events stay in process",
		"SMTP_HOST":               "email notifications will not work",
		"SMTP_FROM":               "email notifications will not work",
		"FIREBASE_STORAGE_BUCKET": "image uploads are disabled",
	}
	for key, effect := range warnings {
		if os.Getenv(key) == "" {
			logger.Warn("environment variable not set", zap.String("key", key), zap.String("effect", effect))
		}
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses a Go duration ("48h") or a number of seconds.
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
