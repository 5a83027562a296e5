package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.JWT.Algorithm != "HS256" {
		t.Errorf("Algorithm = %q", cfg.JWT.Algorithm)
	}
	if got := cfg.AccessTokenTTL(); got != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v", got)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %v", cfg.Session.TTL)
	}
	if cfg.Bootstrap.Enabled() {
		t.Error("bootstrap should be disabled without credentials")
	}
	if cfg.AI.CheckTimeout != 10*time.Second {
		t.Errorf("AI.CheckTimeout = %v", cfg.AI.CheckTimeout)
	}
	if cfg.SealingSecret() != "test-secret" {
		t.Errorf("SealingSecret should fall back to JWT_SECRET, got %q", cfg.SealingSecret())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "changeme123")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.AccessTokenTTL(); got != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v", got)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Session.TTL = %v", cfg.Session.TTL)
	}
	if !cfg.Bootstrap.Enabled() {
		t.Error("bootstrap should be enabled")
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
}

func TestSealingSecretPrefersEncryptionKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AI_ENCRYPTION_KEY", "sealing-secret")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SealingSecret() != "sealing-secret" {
		t.Errorf("SealingSecret = %q", cfg.SealingSecret())
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"JWT_SECRET", "ACCESS_TOKEN_EXPIRE_MINUTES", "SESSION_TTL", "AUDIT_WORKERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}
