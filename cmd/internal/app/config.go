package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"leadadmin/cmd/internal/auth/api"
	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/auth/ratelimit"
	"leadadmin/cmd/internal/auth/session"
	"leadadmin/cmd/internal/realtime"
	"leadadmin/cmd/security/password"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is shared by every package config.
const EnvPrefix = "ADMIN_"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Env      string `env:"ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogColor  bool   `env:"LOG_COLOR" envDefault:"true"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`
	DBMigrate   bool   `env:"DB_MIGRATE" envDefault:"false"`

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`

	// RedisURL enables login throttling. Empty means no limiter.
	RedisURL string `env:"REDIS_URL"`

	// LimiterHMACKey keys the digests used in limiter keys. Without it
	// identifiers are plain SHA-256 digests.
	LimiterHMACKey     string `env:"LIMITER_HMAC_KEY"`
	RequireLimiterHMAC bool   `env:"REQUIRE_LIMITER_HMAC" envDefault:"false"`

	// Development-only account seeded into the in-memory store when no
	// database is configured.
	DevAdminUsername string `env:"DEV_ADMIN_USERNAME"`
	DevAdminPassword string `env:"DEV_ADMIN_PASSWORD"`

	Session  session.Config
	Auth     authapi.Config
	Guard    guard.Config
	Limiter  ratelimit.Config
	Watch    realtime.Config
	Password password.Config
}

// DefaultConfig mirrors the envDefault tags. It is what tests start from.
func DefaultConfig() Config {
	return Config{
		Env:               "production",
		HTTPAddr:          "0.0.0.0:8080",
		LogLevel:          "info",
		LogFormat:         "json",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		DBMaxConns:        10,

		Session:  session.DefaultConfig(),
		Auth:     authapi.DefaultConfig(),
		Guard:    guard.Config{LoginPath: "/login"},
		Limiter:  ratelimit.Config{MaxAttempts: 10, Window: 15 * time.Minute, KeyPrefix: "leadadmin:login"},
		Watch:    realtime.DefaultConfig(),
		Password: password.DefaultConfig(),
	}
}

// LoadConfig reads an optional .env file (ADMIN_ENV_FILE overrides the
// path) and then parses ADMIN_* variables.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(os.Getenv(EnvPrefix + "ENV_FILE")); err != nil {
		return Config{}, err
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("app: config: %w", err)
	}

	pw, err := password.LoadConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Password = pw

	if cfg.Auth.MaxBodyBytes <= 0 {
		cfg.Auth.MaxBodyBytes = authapi.DefaultConfig().MaxBodyBytes
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that would only fail later at request time.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("app: config: log format must be json or pretty, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("app: config: empty http addr")
	}
	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("app: config: db min conns %d out of range", c.DBMinConns)
	}
	if (c.DevAdminUsername == "") != (c.DevAdminPassword == "") {
		return errors.New("app: config: dev admin needs both username and password")
	}
	return c.Session.Validate()
}

// Development reports whether ADMIN_ENV is "development".
func (c Config) Development() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

func loadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("app: load %s: %w", path, err)
}
