package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/carehub_test")
	os.Setenv("JWT_SECRET", "test-secret")
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("JWT_SECRET")
	})
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.TokenTTLDays != 7 {
		t.Errorf("expected default token ttl 7 days, got %d", cfg.TokenTTLDays)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/carehub_test")
	os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("DATABASE_URL")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing JWT_SECRET")
	}
}

func TestTokenTTL(t *testing.T) {
	cfg := &Config{TokenTTLDays: 2}
	if got := cfg.TokenTTL(); got != 48*time.Hour {
		t.Errorf("expected 48h, got %v", got)
	}

	cfg = &Config{}
	if got := cfg.TokenTTL(); got != 7*24*time.Hour {
		t.Errorf("expected 7d fallback, got %v", got)
	}
}

func TestValidate_ProductionSecretLength(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short production secret")
	}

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsDev(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDev() {
		t.Error("expected IsDev true")
	}
	if cfg.IsProduction() {
		t.Error("expected IsProduction false")
	}
}
