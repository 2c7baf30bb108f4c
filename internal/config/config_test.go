package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.StoreMode != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TicketTTL != 12*time.Hour || cfg.OwnerLeaseTTL != 30*time.Second || cfg.SecretHashCost != 10 {
		t.Fatalf("unexpected duration/cost defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BINGO_ADDR", ":9000")
	t.Setenv("BINGO_STORE_MODE", " Postgres ")
	t.Setenv("BINGO_DATABASE_DSN", "postgres://x")
	t.Setenv("BINGO_ALLOWED_ORIGINS", "https://a.example/, https://b.example")
	t.Setenv("BINGO_SEED", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.StoreMode != "postgres" || cfg.DatabaseDSN != "postgres://x" || cfg.Seed != 99 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %q", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BINGO_STORE_MODE", "redis")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "STORE_MODE") {
		t.Fatalf("expected store mode error, got %v", err)
	}

	t.Setenv("BINGO_STORE_MODE", "memory")
	t.Setenv("BINGO_TICKET_TTL", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
