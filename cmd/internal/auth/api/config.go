package authapi

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config controls auth API behavior.
type Config struct {
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool  `env:"AUTH_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"AUTH_MAX_BODY_BYTES" envDefault:"65536"`
	// ExposeToken includes the signed token in the login response body.
	ExposeToken bool `env:"AUTH_EXPOSE_TOKEN" envDefault:"true"`
}

func DefaultConfig() Config {
	return Config{MaxBodyBytes: 64 << 10, ExposeToken: true}
}

// LoadConfigFromEnv loads ADMIN_AUTH_* with safe defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "ADMIN_"})
	if err != nil {
		return Config{}, fmt.Errorf("authapi: config: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return cfg, nil
}
