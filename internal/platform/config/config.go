package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting so main stays lean.
type Config struct {
	Server   Server
	Realm    Realm
	Captcha  Captcha
	Email    Email
	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Realm describes the identity realm this gateway registers users into.
type Realm struct {
	Name string
	// BaseURL is the realm's public base URI; reset and verification links
	// are built from it.
	BaseURL string
	// SigningKey signs action tokens embedded in email links.
	SigningKey string
	// FlowID is the registration flow this deployment executes; stored as a
	// back-reference on every attempt.
	FlowID string
	// AttemptTTL bounds how long a registration attempt may stay open.
	AttemptTTL time.Duration
}

// Captcha configures the bot-check gate for the final step. When Enabled is
// false the gate is a no-op.
type Captcha struct {
	Enabled   bool
	SiteKey   string
	SecretKey string
	VerifyURL string
}

// Email configures both delivery channels and the fixed notification sender.
type Email struct {
	// Theme gates the primary channel: only clients carrying this login
	// theme are routed through the transactional API.
	Theme       string
	APIKey      string
	APIURL      string
	SenderEmail string
	SenderName  string
	SMTPHost    string
	SMTPPort    int
	// ActionTTL bounds the validity of reset/verification links.
	ActionTTL time.Duration
}

// Redis holds connection settings for the attempt store backend.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres holds the user store DSN. Empty means in-memory storage.
type Postgres struct {
	URL string
}

// Kafka holds the registration event sink settings. No brokers means events
// stay in-process.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the full configuration from environment variables with
// development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("ENROLL_ADDR", ":8080"),
		},
		Realm: Realm{
			Name:       envOr("ENROLL_REALM", "main"),
			BaseURL:    envOr("ENROLL_REALM_BASE_URL", "http://localhost:8080"),
			SigningKey: envOr("ENROLL_SIGNING_KEY", "dev-secret-key-change-in-production"),
			FlowID:     envOr("ENROLL_FLOW_ID", "registration"),
			AttemptTTL: envDuration("ENROLL_ATTEMPT_TTL", 30*time.Minute),
		},
		Captcha: Captcha{
			Enabled:   os.Getenv("ENROLL_CAPTCHA_SECRET") != "",
			SiteKey:   os.Getenv("ENROLL_CAPTCHA_SITE_KEY"),
			SecretKey: os.Getenv("ENROLL_CAPTCHA_SECRET"),
			VerifyURL: envOr("ENROLL_CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		},
		Email: Email{
			Theme:       envOr("ENROLL_EMAIL_THEME", "theme-branded"),
			APIKey:      os.Getenv("ENROLL_EMAIL_API_KEY"),
			APIURL:      envOr("ENROLL_EMAIL_API_URL", "https://api.brevo.com/v3/smtp/email"),
			SenderEmail: envOr("ENROLL_EMAIL_SENDER", "no-reply@localhost"),
			SenderName:  envOr("ENROLL_EMAIL_SENDER_NAME", "Registration"),
			SMTPHost:    envOr("ENROLL_SMTP_HOST", "localhost"),
			SMTPPort:    envInt("ENROLL_SMTP_PORT", 25),
			ActionTTL:   envDuration("ENROLL_ACTION_TTL", 15*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("ENROLL_REDIS_URL"),
			PoolSize:     envInt("ENROLL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ENROLL_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("ENROLL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ENROLL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ENROLL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			URL: os.Getenv("ENROLL_POSTGRES_URL"),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("ENROLL_KAFKA_BROKERS")),
			Topic:   envOr("ENROLL_KAFKA_TOPIC", "registration.events"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
