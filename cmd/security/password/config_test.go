package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_Override(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_MIN_LEN", "10")
	t.Setenv("ADMIN_PASSWORD_MAX_LEN", "200")
	t.Setenv("ADMIN_PASSWORD_REJECT_VERY_WEAK", "true")
	t.Setenv("ADMIN_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("ADMIN_ARGON2_ITERATIONS", "4")
	t.Setenv("ADMIN_ARGON2_PARALLELISM", "2")
	t.Setenv("ADMIN_ARGON2_SALT_LEN", "24")
	t.Setenv("ADMIN_ARGON2_KEY_LEN", "32")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Policy{MinLength: 10, MaxLength: 200, RejectVeryWeak: true}, cfg.Policy)
	assert.Equal(t, Argon2idParams{MemoryKiB: 32768, Iterations: 4, Parallelism: 2, SaltLength: 24, KeyLength: 32}, cfg.Params)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"ADMIN_PASSWORD_MIN_LEN":  "0",
		"ADMIN_ARGON2_MEMORY_KIB": "1024",
		"ADMIN_ARGON2_SALT_LEN":   "not-a-number",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := LoadConfigFromEnv()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	t.Run("min above max", func(t *testing.T) {
		t.Setenv("ADMIN_PASSWORD_MIN_LEN", "50")
		t.Setenv("ADMIN_PASSWORD_MAX_LEN", "40")
		_, err := LoadConfigFromEnv()
		assert.ErrorIs(t, err, ErrConfig)
	})
}
