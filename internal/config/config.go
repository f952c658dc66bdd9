// internal/config/config.go
//
// Process configuration. A .env file is loaded first when present (local
// development), then the environment is parsed into Config.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"5175"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	NodeEnv   string `env:"NODE_ENV" envDefault:"development"`

	ClientOrigin  string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"dev_secret_change_me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"` // idle sessions are evicted after this
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"336h"`  // session token lifetime
	CookieName    string        `env:"COOKIE_NAME" envDefault:"rps_token"`

	Store         string        `env:"STORE" envDefault:"memory"`
	SQLiteDSN     string        `env:"SQLITE_DSN" envDefault:":memory:"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	Seed      uint64 `env:"RPS_SEED" envDefault:"0"` // 0 = seed from crypto/rand
}

// Production reports whether cookies should be Secure.
func (c Config) Production() bool { return c.NodeEnv == "production" }

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must not be empty")
	}
	if c.SessionTTL <= 0 || c.TokenTTL <= 0 {
		return errors.New("SESSION_TTL and TOKEN_TTL must be positive")
	}
	return nil
}
