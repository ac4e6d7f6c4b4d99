package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("DASHSCOPE_BASE_URL", "")
	t.Setenv("DEFAULT_CREDITS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.DashScopeBaseURL != "https://dashscope.aliyuncs.com/api/v1" {
		t.Fatalf("DashScopeBaseURL mismatch: got %q", cfg.DashScopeBaseURL)
	}
	if cfg.DashScopeModel != "wanx2.1-t2i-turbo" {
		t.Fatalf("DashScopeModel mismatch: got %q", cfg.DashScopeModel)
	}
	if cfg.DefaultCredits != 5 {
		t.Fatalf("DefaultCredits = %d, want 5", cfg.DefaultCredits)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Fatalf("ProviderTimeout = %s, want 30s", cfg.ProviderTimeout)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEFAULT_CREDITS", "12")
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "15")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DefaultCredits != 12 {
		t.Fatalf("DefaultCredits = %d, want 12", cfg.DefaultCredits)
	}
	if cfg.ProviderTimeout != 15*time.Second {
		t.Fatalf("ProviderTimeout = %s, want 15s", cfg.ProviderTimeout)
	}
	if cfg.RateLimitPerMin != 7 {
		t.Fatalf("RateLimitPerMin = %d, want 7", cfg.RateLimitPerMin)
	}
}
