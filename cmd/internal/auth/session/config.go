package session

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultCookieName = "adminSession"

	CookieFormatPlain  = "plain"
	CookieFormatSigned = "signed"
)

// Config is the session surface read from ADMIN_* variables.
type Config struct {
	// Env is the deployment environment. Anything but "development" marks
	// the cookie Secure.
	Env string `env:"ENV" envDefault:"production"`

	Issuer             string `env:"SESSION_ISSUER" envDefault:"leadadmin"`
	TokenFormat        string `env:"SESSION_TOKEN_FORMAT" envDefault:"jwt"`
	SigningSecret      string `env:"SESSION_SIGNING_SECRET"`
	PasetoSecretKeyHex string `env:"SESSION_PASETO_SECRET_KEY_HEX"`

	CookieName     string `env:"SESSION_COOKIE_NAME" envDefault:"adminSession"`
	CookieFormat   string `env:"SESSION_COOKIE_FORMAT" envDefault:"plain"`
	CookieSameSite string `env:"SESSION_COOKIE_SAMESITE" envDefault:"lax"`
	CookieDomain   string `env:"SESSION_COOKIE_DOMAIN"`
}

// DefaultConfig returns production defaults without key material.
func DefaultConfig() Config {
	return Config{
		Env:            "production",
		Issuer:         "leadadmin",
		TokenFormat:    FormatJWT,
		CookieName:     DefaultCookieName,
		CookieFormat:   CookieFormatPlain,
		CookieSameSite: "lax",
	}
}

// LoadConfigFromEnv parses and validates the session config.
func LoadConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "ADMIN_"})
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerations. Key material is checked by NewSignedCodec.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("%w: empty cookie name", ErrConfig)
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return fmt.Errorf("%w: empty issuer", ErrConfig)
	}
	switch strings.ToLower(c.CookieFormat) {
	case CookieFormatPlain, CookieFormatSigned:
	default:
		return fmt.Errorf("%w: cookie format must be plain or signed", ErrConfig)
	}
	if _, ok := parseSameSite(c.CookieSameSite); !ok {
		return fmt.Errorf("%w: samesite must be lax or strict", ErrConfig)
	}
	return nil
}

// Development reports whether the app runs in development mode.
func (c Config) Development() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// SameSite returns the configured http.SameSite, Lax when unset.
func (c Config) SameSite() http.SameSite {
	ss, _ := parseSameSite(c.CookieSameSite)
	return ss
}

// Lax and Strict are the first-party-only modes; None is never accepted.
func parseSameSite(s string) (http.SameSite, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, true
	case "strict":
		return http.SameSiteStrictMode, true
	default:
		return http.SameSiteDefaultMode, false
	}
}
