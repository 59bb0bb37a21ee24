package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost. MemoryKiB is in KiB as
// argon2.IDKey expects.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted secrets.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// envConfig mirrors Config with env tags. Unset variables keep the defaults
// that were copied in before parsing.
type envConfig struct {
	MinLength      int    `env:"PASSWORD_MIN_LEN"`
	MaxLength      int    `env:"PASSWORD_MAX_LEN"`
	RejectVeryWeak bool   `env:"PASSWORD_REJECT_VERY_WEAK"`
	MemoryKiB      uint32 `env:"ARGON2_MEMORY_KIB"`
	Iterations     uint32 `env:"ARGON2_ITERATIONS"`
	Parallelism    uint8  `env:"ARGON2_PARALLELISM"`
	SaltLength     uint32 `env:"ARGON2_SALT_LEN"`
	KeyLength      uint32 `env:"ARGON2_KEY_LEN"`
}

// DefaultConfig returns the baseline cost for interactive admin logins.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 12,
			MaxLength: 256,
		},
	}
}

// LoadConfigFromEnv reads ADMIN_PASSWORD_* and ADMIN_ARGON2_* on top of
// DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	raw := envConfig{
		MinLength:      def.Policy.MinLength,
		MaxLength:      def.Policy.MaxLength,
		RejectVeryWeak: def.Policy.RejectVeryWeak,
		MemoryKiB:      def.Params.MemoryKiB,
		Iterations:     def.Params.Iterations,
		Parallelism:    def.Params.Parallelism,
		SaltLength:     def.Params.SaltLength,
		KeyLength:      def.Params.KeyLength,
	}
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: "ADMIN_"}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	cfg := Config{
		Params: Argon2idParams{
			MemoryKiB:   raw.MemoryKiB,
			Iterations:  raw.Iterations,
			Parallelism: raw.Parallelism,
			SaltLength:  raw.SaltLength,
			KeyLength:   raw.KeyLength,
		},
		Policy: Policy{
			MinLength:      raw.MinLength,
			MaxLength:      raw.MaxLength,
			RejectVeryWeak: raw.RejectVeryWeak,
		},
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	switch {
	case c.Policy.MinLength < 1 || c.Policy.MinLength > 1024:
		return fmt.Errorf("%w: min length out of range [1..1024]", ErrConfig)
	case c.Policy.MaxLength < 1 || c.Policy.MaxLength > 4096:
		return fmt.Errorf("%w: max length out of range [1..4096]", ErrConfig)
	case c.Policy.MinLength > c.Policy.MaxLength:
		return fmt.Errorf("%w: min length %d > max length %d", ErrConfig, c.Policy.MinLength, c.Policy.MaxLength)
	case c.Params.MemoryKiB < 8*1024 || c.Params.MemoryKiB > 1024*1024:
		return fmt.Errorf("%w: argon2 memory out of range [8MiB..1GiB]", ErrConfig)
	case c.Params.Iterations < 1 || c.Params.Iterations > 20:
		return fmt.Errorf("%w: argon2 iterations out of range [1..20]", ErrConfig)
	case c.Params.Parallelism < 1 || c.Params.Parallelism > 64:
		return fmt.Errorf("%w: argon2 parallelism out of range [1..64]", ErrConfig)
	case c.Params.SaltLength < 8 || c.Params.SaltLength > 64:
		return fmt.Errorf("%w: salt length out of range [8..64]", ErrConfig)
	case c.Params.KeyLength < 16 || c.Params.KeyLength > 64:
		return fmt.Errorf("%w: key length out of range [16..64]", ErrConfig)
	}
	return nil
}
