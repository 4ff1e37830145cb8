package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath    string
	Port            string
	SecretKey       string
	Environment     string
	LogLevel        string
	AllowedOrigins  []string
	SessionDuration time.Duration

	// Remote storefront API
	APIBaseURL       string
	UpstreamTimeout  time.Duration
	UpstreamAttempts int

	MailgunDomain      string
	MailgunAPIKey      string
	MailgunSenderEmail string
	MailgunSenderName  string
}

func Load() *Config {
	// A missing .env is fine, the process environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "boutique.db"),
		Port:            getEnv("PORT", "8080"),
		SecretKey:       getEnv("SECRET_KEY", "your-secret-key-change-this-in-production"),
		Environment:     getEnv("ENVIRONMENT", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		AllowedOrigins:  splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		SessionDuration: parseDuration(getEnv("SESSION_DURATION", "720h"), 30*24*time.Hour),

		APIBaseURL:       strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		UpstreamTimeout:  parseDuration(getEnv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),
		UpstreamAttempts: parseInt(getEnv("UPSTREAM_ATTEMPTS", "3"), 3),

		MailgunDomain:      getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:      getEnv("MAILGUN_API_KEY", ""),
		MailgunSenderEmail: getEnv("MAILGUN_SENDER_EMAIL", "no-reply@boutique.local"),
		MailgunSenderName:  getEnv("MAILGUN_SENDER_NAME", "Boutique"),
	}
	return cfg
}

func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); strings.TrimSpace(value) != "" {
		return value
	}
	return defaultValue
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return def
	}
	return n
}
