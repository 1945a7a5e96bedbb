package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_TIMEOUT_SECONDS", "")
	t.Setenv("RESULT_TTL_HOURS", "")

	cfg := Load()
	if !cfg.UseFixture() {
		t.Fatalf("expected fixture backend without API_BASE_URL")
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", cfg.APITimeout)
	}
	if cfg.ResultTTL != 7*24*time.Hour {
		t.Fatalf("expected one week TTL, got %v", cfg.ResultTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.test")
	t.Setenv("API_TIMEOUT_SECONDS", "3")
	t.Setenv("RESULT_TTL_HOURS", "bogus")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	if cfg.UseFixture() {
		t.Fatalf("expected REST backend")
	}
	if cfg.APITimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %v", cfg.APITimeout)
	}
	if cfg.ResultTTL != 7*24*time.Hour {
		t.Fatalf("expected default TTL for bad input, got %v", cfg.ResultTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}
