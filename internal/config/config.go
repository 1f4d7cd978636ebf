// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL    string `env:"DATABASE_URL"`
	DBUser         string `env:"DB_USER"`
	DBPassword     string `env:"DB_PASSWORD"`
	DBHost         string `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string `env:"DB_PORT" envDefault:"5432"`
	DBName         string `env:"DB_NAME"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	ContactUnlockCost int64 `env:"CONTACT_UNLOCK_COST" envDefault:"5"`
	SignupBonusTokens int64 `env:"SIGNUP_BONUS_TOKENS" envDefault:"0"`
	MaxPurchase       int64 `env:"TOKENS_MAX_PURCHASE" envDefault:"10000"`
	LedgerStrict      bool  `env:"LEDGER_STRICT" envDefault:"true"`

	AMQPURL           string `env:"AMQP_URL"`
	AMQPExchange      string `env:"AMQP_EXCHANGE" envDefault:"collabhub.events"`
	AMQPPurchaseQueue string `env:"AMQP_PURCHASE_QUEUE" envDefault:"token_purchases"`

	RedisURL        string        `env:"REDIS_URL"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on OS environment variables")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ContactUnlockCost < 0 || cfg.SignupBonusTokens < 0 || cfg.MaxPurchase <= 0 {
		return Config{}, fmt.Errorf("token settings must be non-negative and TOKENS_MAX_PURCHASE positive")
	}
	return cfg, nil
}

// DSN returns DATABASE_URL or assembles one from the DB_* parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
