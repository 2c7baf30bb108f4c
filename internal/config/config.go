package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration, read from BINGO_* environment variables.
type Config struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	StoreMode         string        `env:"STORE_MODE" envDefault:"sqlite"`
	DatabaseDSN       string        `env:"DATABASE_DSN"`
	LocalDatabasePath string        `env:"LOCAL_DATABASE_PATH"`
	TicketSecret      string        `env:"TICKET_SECRET"`
	TicketTTL         time.Duration `env:"TICKET_TTL" envDefault:"12h"`
	SecretHashCost    int           `env:"SECRET_HASH_COST" envDefault:"10"`
	InstanceID        string        `env:"INSTANCE_ID"`
	OwnerLeaseTTL     time.Duration `env:"OWNER_LEASE_TTL" envDefault:"30s"`
	Seed              int64         `env:"SEED"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	ReapInterval      time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
}

const envPrefix = "BINGO_"

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.StoreMode = strings.ToLower(strings.TrimSpace(c.StoreMode))
	switch c.StoreMode {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("%sSTORE_MODE %q (supported: memory, sqlite, postgres)", envPrefix, c.StoreMode)
	}
	if c.SecretHashCost < 4 || c.SecretHashCost > 31 {
		return fmt.Errorf("%sSECRET_HASH_COST must be within 4..31, got %d", envPrefix, c.SecretHashCost)
	}
	if c.OwnerLeaseTTL < 3*time.Second {
		return fmt.Errorf("%sOWNER_LEASE_TTL must be at least 3s, got %s", envPrefix, c.OwnerLeaseTTL)
	}
	if c.TicketTTL <= 0 {
		return fmt.Errorf("%sTICKET_TTL must be positive", envPrefix)
	}
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimRight(strings.TrimSpace(o), "/")
	}
	return nil
}
