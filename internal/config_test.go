package internal

import (
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 6791}
	if got := cfg.Address(); got != "127.0.0.1:6791" {
		t.Errorf("address = %q, want loopback default", got)
	}
	cfg.Host = "0.0.0.0"
	if got := cfg.Address(); got != "0.0.0.0:6791" {
		t.Errorf("address = %q", got)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestDataConfig_DirRequired(t *testing.T) {
	cfg := DataConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty data dir should fail validation")
	}
}

func TestSQLiteConfig_PathRequired(t *testing.T) {
	cfg := SQLiteConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty sqlite path should fail validation")
	}
}

func TestAuthConfig(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should normalise to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q, enabled = %v", cfg.Mode, cfg.AuthEnabled())
	}

	cfg = AuthConfig{Mode: AuthModeToken}
	if err := cfg.Validate(); err == nil {
		t.Fatal("token mode without a token should fail validation")
	}

	cfg = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should report enabled")
	}

	cfg = AuthConfig{Mode: "basic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown mode should fail validation")
	}
}
