package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI          string        `mapstructure:"MONGO_URI"`
	MongoDatabase     string        `mapstructure:"MONGO_DATABASE"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RoleCacheTTL      time.Duration `mapstructure:"ROLE_CACHE_TTL"`
	AccessTokenSecret string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StoreTimeout      time.Duration `mapstructure:"STORE_TIMEOUT"`
	PaymentTimeout    time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	NotifyTimeout     time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	NotifyMaxAttempts int           `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	StripeSecretKey   string        `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentCurrency   string        `mapstructure:"PAYMENT_CURRENCY"`
	MailgunDomain     string        `mapstructure:"MAILGUN_DOMAIN"`
	MailgunAPIKey     string        `mapstructure:"MAILGUN_API_KEY"`
	EmailSender       string        `mapstructure:"EMAIL_SENDER"`
	ClinicAddress     string        `mapstructure:"CLINIC_ADDRESS"`
}

// devSecret signs credentials when ACCESS_TOKEN_SECRET is unset in development.
const devSecret = "clinic-development-secret"

var envKeys = []string{
	"PORT", "ENV", "STORE_DRIVER",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGO_URI", "MONGO_DATABASE",
	"REDIS_URL", "ROLE_CACHE_TTL",
	"ACCESS_TOKEN_SECRET", "TOKEN_TTL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "STORE_TIMEOUT", "PAYMENT_TIMEOUT",
	"NOTIFY_TIMEOUT", "NOTIFY_MAX_ATTEMPTS",
	"STRIPE_SECRET_KEY", "PAYMENT_CURRENCY",
	"MAILGUN_DOMAIN", "MAILGUN_API_KEY", "EMAIL_SENDER",
	"CLINIC_ADDRESS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGO_DATABASE", "doctors_app")
	v.SetDefault("ROLE_CACHE_TTL", "60s")
	v.SetDefault("TOKEN_TTL", "1h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_TIMEOUT", "15s")
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("EMAIL_SENDER", "Doctors Portal <noreply@clinic.local>")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if cfg.AccessTokenSecret == "" && cfg.IsDev() {
		cfg.AccessTokenSecret = devSecret
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesDevSecret reports whether credentials are signed with the built-in
// development secret.
func (c *Config) UsesDevSecret() bool {
	return c.AccessTokenSecret == devSecret
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER is %q", StoreMongo)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE must not be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StorePostgres, StoreMongo, c.StoreDriver)
	}

	if c.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if !c.IsDev() && c.UsesDevSecret() {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must not use the development secret (ENV=%q)", c.Env)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1, got %d", c.NotifyMaxAttempts)
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT": c.RequestTimeout,
		"STORE_TIMEOUT":   c.StoreTimeout,
		"PAYMENT_TIMEOUT": c.PaymentTimeout,
		"NOTIFY_TIMEOUT":  c.NotifyTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if (c.MailgunDomain == "") != (c.MailgunAPIKey == "") {
		return fmt.Errorf("MAILGUN_DOMAIN and MAILGUN_API_KEY must be set together")
	}
	return nil
}

func (c *Config) MailgunEnabled() bool { return c.MailgunDomain != "" && c.MailgunAPIKey != "" }

func (c *Config) StripeEnabled() bool { return c.StripeSecretKey != "" }
