//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
log:
  level: debug
redis:
  url: redis://localhost:6379
billing:
  base64_public_key: dGVzdC1rZXk=
  tracked_products: [premium_subscription]
verify:
  url: https://api.example.com/v2/subscription/verify
`

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig), false)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if cfg.Billing.CatalogFreshness != time.Minute {
			t.Errorf("expected 1m freshness default, got %s", cfg.Billing.CatalogFreshness)
		}
		if cfg.Billing.ReconnectFloor != time.Second || cfg.Billing.ReconnectCap != 15*time.Minute {
			t.Errorf("unexpected reconnect defaults: %s / %s", cfg.Billing.ReconnectFloor, cfg.Billing.ReconnectCap)
		}
		if cfg.Worker.MaxAttempts != 3 {
			t.Errorf("expected 3 attempts default, got %d", cfg.Worker.MaxAttempts)
		}
		if cfg.Worker.RetryWait != 5*time.Second {
			t.Errorf("expected 5s retry wait default, got %s", cfg.Worker.RetryWait)
		}
		if cfg.Verify.Timeout != 30*time.Second {
			t.Errorf("expected 30s verify timeout default, got %s", cfg.Verify.Timeout)
		}
	})

	t.Run("should require tracked products", func(t *testing.T) {
		cfg := `
redis:
  url: redis://localhost:6379
billing:
  base64_public_key: dGVzdC1rZXk=
verify:
  url: https://api.example.com/verify
`
		if _, err := LoadConfig(writeConfig(t, cfg), false); err == nil {
			t.Error("expected an error for missing tracked_products")
		}
	})

	t.Run("should require the verify URL", func(t *testing.T) {
		cfg := `
redis:
  url: redis://localhost:6379
billing:
  base64_public_key: dGVzdC1rZXk=
  tracked_products: [premium_subscription]
`
		if _, err := LoadConfig(writeConfig(t, cfg), false); err == nil {
			t.Error("expected an error for missing verify.url")
		}
	})

	t.Run("should reject allow_unsigned outside dev mode", func(t *testing.T) {
		cfg := `
redis:
  url: redis://localhost:6379
billing:
  base64_public_key: dGVzdC1rZXk=
  tracked_products: [premium_subscription]
  allow_unsigned: true
verify:
  url: https://api.example.com/verify
`
		if _, err := LoadConfig(writeConfig(t, cfg), false); err == nil {
			t.Error("expected allow_unsigned to be rejected without dev mode")
		}
	})

	t.Run("should accept allow_unsigned in dev mode", func(t *testing.T) {
		cfg := `
redis:
  url: redis://localhost:6379
billing:
  tracked_products: [premium_subscription]
  allow_unsigned: true
verify:
  url: https://api.example.com/verify
`
		loaded, err := LoadConfig(writeConfig(t, cfg), true)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !loaded.Runtime.Dev || !loaded.Billing.AllowUnsigned {
			t.Error("expected dev mode with unsigned purchases allowed")
		}
	})

	t.Run("should require a public key when signatures are enforced", func(t *testing.T) {
		cfg := `
redis:
  url: redis://localhost:6379
billing:
  tracked_products: [premium_subscription]
verify:
  url: https://api.example.com/verify
`
		if _, err := LoadConfig(writeConfig(t, cfg), false); err == nil {
			t.Error("expected an error for a missing public key")
		}
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Error("expected an error")
		}
	})
}
