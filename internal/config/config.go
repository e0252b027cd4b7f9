// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type BillingConfig struct {
	// Base64 X.509 public key of the payment provider used to verify signed
	// purchase payloads.
	Base64PublicKey string `yaml:"base64_public_key"`
	// Product ids whose entitlement state the client tracks.
	TrackedProducts []string `yaml:"tracked_products"`
	// How long a successful catalog query stays fresh.
	CatalogFreshness time.Duration `yaml:"catalog_freshness"`
	ReconnectFloor   time.Duration `yaml:"reconnect_floor"`
	ReconnectCap     time.Duration `yaml:"reconnect_cap"`
	// AllowUnsigned lets blank/malformed signatures pass verification. Only
	// honored in dev mode; LoadConfig rejects it otherwise.
	AllowUnsigned bool `yaml:"allow_unsigned"`
}

type VerifyConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	PollWait    time.Duration `yaml:"poll_wait"`
	OfflineWait time.Duration `yaml:"offline_wait"`
	RetryWait   time.Duration `yaml:"retry_wait"`
}

type OpsConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Redis   RedisConfig   `yaml:"redis"`
	Billing BillingConfig `yaml:"billing"`
	Verify  VerifyConfig  `yaml:"verify"`
	Worker  WorkerConfig  `yaml:"worker"`
	Ops     OpsConfig     `yaml:"ops"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Billing.CatalogFreshness <= 0 {
		cfg.Billing.CatalogFreshness = time.Minute
	}
	if cfg.Billing.ReconnectFloor <= 0 {
		cfg.Billing.ReconnectFloor = time.Second
	}
	if cfg.Billing.ReconnectCap <= 0 {
		cfg.Billing.ReconnectCap = 15 * time.Minute
	}
	if cfg.Verify.Timeout <= 0 {
		cfg.Verify.Timeout = 30 * time.Second
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 3
	}
	if cfg.Worker.PollWait <= 0 {
		cfg.Worker.PollWait = 2 * time.Second
	}
	if cfg.Worker.OfflineWait <= 0 {
		cfg.Worker.OfflineWait = 10 * time.Second
	}
	if cfg.Worker.RetryWait <= 0 {
		cfg.Worker.RetryWait = 5 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if len(cfg.Billing.TrackedProducts) == 0 {
		return nil, errors.New("billing.tracked_products is required")
	}
	if cfg.Verify.URL == "" {
		return nil, errors.New("verify.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Billing.AllowUnsigned && !dev {
		return nil, errors.New("billing.allow_unsigned requires dev mode")
	}
	if cfg.Billing.Base64PublicKey == "" && !cfg.Billing.AllowUnsigned {
		return nil, errors.New("billing.base64_public_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
