package app

import (
	"errors"
	"fmt"
	"strings"

	"leadadmin/cmd/security/token"
)

const minLimiterKeyBytes = token.MinHMACKeyBytes

// limiterKey enforces the limiter key policy at startup and returns the key
// bytes (nil means plain SHA-256 digests).
func limiterKey(cfg Config) ([]byte, error) {
	raw := strings.TrimSpace(cfg.LimiterHMACKey)
	if raw == "" && !cfg.RequireLimiterHMAC {
		return nil, nil
	}

	key, err := token.HMACKey(raw, minLimiterKeyBytes)
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, token.ErrKeyMissing):
		return nil, fmt.Errorf("security policy: %sREQUIRE_LIMITER_HMAC=true but %sLIMITER_HMAC_KEY is missing", EnvPrefix, EnvPrefix)
	case errors.Is(err, token.ErrKeyTooShort):
		return nil, fmt.Errorf("security policy: %sLIMITER_HMAC_KEY is too short (min %d bytes)", EnvPrefix, minLimiterKeyBytes)
	default:
		return nil, err
	}
}
