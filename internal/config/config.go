package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DBDSN         string `env:"DB_DSN,required"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	Environment   string `env:"ENV" envDefault:"development"`

	// HTTP API поднимается только при заданном адресе
	HTTPAddr  string `env:"HTTP_ADDR"`
	JWTSecret string `env:"JWT_SECRET"`

	LockTimeout  time.Duration `env:"LOCK_TIMEOUT" envDefault:"2s"`
	TxMaxRetries uint64        `env:"TX_MAX_RETRIES" envDefault:"3"`
	TxRetryBase  time.Duration `env:"TX_RETRY_BASE" envDefault:"50ms"`

	AuditInterval time.Duration `env:"AUDIT_INTERVAL" envDefault:"1h"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return Parse(nil)
}

// Parse читает конфигурацию из окружения. Непустой environment подменяет os.Environ (для тестов).
func Parse(environment map[string]string) (*Config, error) {
	cfg := &Config{}

	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	if c.HTTPAddr != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes when HTTP_ADDR is set")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.LockTimeout < 0 || c.TxRetryBase < 0 || c.AuditInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
