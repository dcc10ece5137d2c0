// Package config loads process configuration from the environment once at
// startup, following the reference main.go's pattern of reading os.Getenv
// into a typed struct before anything else is wired up.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr string
	Env  string

	DB         DBConfig
	Auth       AuthConfig
	MercadoPago MercadoPagoConfig
	AntiAbuse  AntiAbuseConfig
	Reservation ReservationConfig
	RateLimiter RateLimiterConfig
}

type DBConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleTime  string
}

type AuthConfig struct {
	JWTSecret          string
	JWTAlgorithm       string
	JWTIssuer          string
	AccessTokenExpire  time.Duration
	RefreshTokenExpire time.Duration
}

type MercadoPagoConfig struct {
	AccessToken    string
	Env            string // sandbox | production
	TimeoutSeconds int
	SuccessURL     string
	FailureURL     string
	PendingURL     string
	NotificationURL string
	WebhookSecret  string
}

type AntiAbuseConfig struct {
	IPMaxRequests            int
	IPWindow                 time.Duration
	EmailMaxRequests         int
	EmailWindow              time.Duration
	EmailMinIntervalSeconds  int
}

type ReservationConfig struct {
	SweepInterval time.Duration
}

// RateLimiterConfig governs the coarse global per-IP request throttle; it
// is distinct from AntiAbuseConfig, which guards guest checkout abuse
// specifically with per-IP and per-email windows.
type RateLimiterConfig struct {
	Enabled              bool
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load reads and validates the process configuration. It fails fast: any
// required variable missing or malformed returns a non-nil error instead of
// letting the zero value leak into a running server.
func Load() (*Config, error) {
	cfg := &Config{
		Addr: getenv("ADDR", ":8080"),
		Env:  getenv("APP_ENV", "development"),
		DB: DBConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getenvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleTime:  getenv("DB_MAX_IDLE_TIME", "15m"),
		},
		Auth: AuthConfig{
			JWTSecret:          os.Getenv("JWT_SECRET"),
			JWTAlgorithm:       getenv("JWT_ALGORITHM", "HS256"),
			JWTIssuer:          getenv("JWT_ISSUER", "sales-core"),
			AccessTokenExpire:  time.Duration(getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 0)) * time.Minute,
			RefreshTokenExpire: time.Duration(getenvInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:     os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
			Env:             getenv("MERCADOPAGO_ENV", "sandbox"),
			TimeoutSeconds:  getenvInt("MERCADOPAGO_TIMEOUT_SECONDS", 10),
			SuccessURL:      os.Getenv("MERCADOPAGO_SUCCESS_URL"),
			FailureURL:      os.Getenv("MERCADOPAGO_FAILURE_URL"),
			PendingURL:      os.Getenv("MERCADOPAGO_PENDING_URL"),
			NotificationURL: os.Getenv("MERCADOPAGO_NOTIFICATION_URL"),
			WebhookSecret:   os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"),
		},
		AntiAbuse: AntiAbuseConfig{
			IPMaxRequests:           getenvInt("ANTI_ABUSE_IP_MAX_REQUESTS", 20),
			IPWindow:                5 * time.Minute,
			EmailMaxRequests:        getenvInt("ANTI_ABUSE_EMAIL_MAX_REQUESTS", 6),
			EmailWindow:             10 * time.Minute,
			EmailMinIntervalSeconds: 20,
		},
		Reservation: ReservationConfig{
			SweepInterval: time.Duration(getenvInt("RESERVATION_SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:              getenv("RATE_LIMITER_ENABLED", "true") == "true",
			RequestsPerTimeFrame: getenvInt("RATE_LIMITER_REQUESTS_PER_TIME_FRAME", 60),
			TimeFrame:            time.Duration(getenvInt("RATE_LIMITER_TIME_FRAME_SECONDS", 60)) * time.Second,
		},
	}

	var missing []string
	if cfg.DB.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.Auth.AccessTokenExpire <= 0 {
		missing = append(missing, "ACCESS_TOKEN_EXPIRE_MINUTES")
	}
	if cfg.MercadoPago.AccessToken == "" {
		missing = append(missing, "MERCADOPAGO_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %v", missing)
	}

	if cfg.MercadoPago.Env != "sandbox" && cfg.MercadoPago.Env != "production" {
		return nil, fmt.Errorf("config: MERCADOPAGO_ENV must be sandbox or production, got %q", cfg.MercadoPago.Env)
	}
	if cfg.MercadoPago.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("config: MERCADOPAGO_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.Auth.RefreshTokenExpire <= 0 {
		return nil, fmt.Errorf("config: REFRESH_TOKEN_EXPIRE_DAYS must be > 0")
	}

	return cfg, nil
}
