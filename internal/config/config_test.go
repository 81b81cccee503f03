package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/conciertapp")
	t.Setenv("API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Jobs.Concurrency != 1 {
		t.Fatalf("expected sequential jobs by default, got %d", cfg.Jobs.Concurrency)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Fatalf("expected 1h cache ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Providers.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", cfg.Providers.OpenAIModel)
	}
	if cfg.Providers.Catalog != "spotify" {
		t.Fatalf("unexpected catalog %q", cfg.Providers.Catalog)
	}
	if cfg.Providers.AppleMusicStorefront != "cl" {
		t.Fatalf("unexpected storefront %q", cfg.Providers.AppleMusicStorefront)
	}
}

func TestLoadBuildsURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "conciertos")
	t.Setenv("API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "postgresql://app:pw@db:5432/conciertos?sslmode=disable"
	if cfg.Database.URL != want {
		t.Fatalf("URL = %q, want %q", cfg.Database.URL, want)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 0},
		Logging:   LoggingConfig{Level: "loud", Format: "json"},
		Providers: ProvidersConfig{Catalog: "tidal"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "API_KEY", "PORT", "JOB_CONCURRENCY", "CATALOG_PROVIDER", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s: %v", want, err)
		}
	}
}

func TestLoadRejectsBadConcurrency(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/conciertapp")
	t.Setenv("API_KEY", "secret")
	t.Setenv("JOB_CONCURRENCY", "many")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric JOB_CONCURRENCY")
	}
}

func TestLoadDatabaseSkipsServiceSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/conciertapp")
	t.Setenv("API_KEY", "")
	t.Setenv("API_KEY_HASH", "")

	db, err := LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if db.URL != "postgres://localhost/conciertapp" {
		t.Fatalf("unexpected url %q", db.URL)
	}

	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "")
	if _, err := LoadDatabase(); err == nil {
		t.Fatalf("expected error without a database url")
	}
}
