// Package config reads client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the billpay client configuration. Every field has an
// environment source; command-line flags override afterwards.
type Config struct {
	APIBaseURL        string        `env:"BILLPAY_API_URL" envDefault:"https://api.billpay.example.com/api/v1"`
	CheckoutURL       string        `env:"BILLPAY_CHECKOUT_URL" envDefault:"https://checkout.paystack.com"`
	CheckoutPublicKey string        `env:"BILLPAY_CHECKOUT_KEY"`
	StateDir          string        `env:"BILLPAY_STATE_DIR"`
	RequestTimeout    time.Duration `env:"BILLPAY_REQUEST_TIMEOUT" envDefault:"15s"`
	PollInterval      time.Duration `env:"BILLPAY_POLL_INTERVAL" envDefault:"30s"`
	Verbose           bool          `env:"BILLPAY_VERBOSE"`
}

// Load parses the environment and fills in the state directory default
// (a billpay folder under the platform config dir).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(base, "billpay")
	}
	return cfg, nil
}

// SessionDBPath is the bbolt database holding the persisted session.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.StateDir, "session.db")
}

// KeyfilePath is the machine-local seed used to seal the session at rest.
func (c *Config) KeyfilePath() string {
	return filepath.Join(c.StateDir, "billpay.key")
}
