package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvFile points ADMIN_ENV_FILE at content. Keys in the file are
// registered with t.Setenv first so godotenv's writes are undone afterwards.
func setEnvFile(t *testing.T, content string) {
	t.Helper()
	for _, line := range strings.Split(content, "\n") {
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(EnvPrefix+"ENV_FILE", path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvPrefix+"ENV_FILE", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 1<<20, cfg.MaxHeaderBytes)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, "adminSession", cfg.Session.CookieName)
	assert.Equal(t, 10, cfg.Limiter.MaxAttempts)
	assert.Equal(t, "/login", cfg.Guard.LoginPath)
	assert.Equal(t, DefaultConfig().Password, cfg.Password)
	assert.False(t, cfg.Development())
}

func TestLoadConfig_FromEnvAndDotEnv(t *testing.T) {
	setEnvFile(t, strings.Join([]string{
		"ADMIN_HTTP_ADDR=127.0.0.1:9000",
		"ADMIN_LOG_FORMAT=pretty",
		"ADMIN_GUARD_PREFIXES=/dashboard,/reports",
	}, "\n"))
	t.Setenv("ADMIN_ENV", "development")
	t.Setenv("ADMIN_SESSION_COOKIE_FORMAT", "signed")
	t.Setenv("ADMIN_LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("ADMIN_WS_ALLOWED_ORIGINS", "https://admin.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, []string{"/dashboard", "/reports"}, cfg.Guard.Prefixes)
	assert.True(t, cfg.Development())
	assert.Equal(t, "development", cfg.Session.Env)
	assert.Equal(t, "signed", cfg.Session.CookieFormat)
	assert.Equal(t, 3, cfg.Limiter.MaxAttempts)
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.Watch.AllowedOrigins)
}

func TestLoadConfig_ProcessEnvWinsOverDotEnv(t *testing.T) {
	setEnvFile(t, "ADMIN_LOG_LEVEL=debug\n")
	t.Setenv("ADMIN_LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"log format":      {"ADMIN_LOG_FORMAT", "xml"},
		"duration":        {"ADMIN_HTTP_READ_TIMEOUT", "soon"},
		"cookie format":   {"ADMIN_SESSION_COOKIE_FORMAT", "zip"},
		"half dev admin":  {"ADMIN_DEV_ADMIN_USERNAME", "ops"},
		"argon2 too weak": {"ADMIN_ARGON2_MEMORY_KIB", "1024"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(EnvPrefix+"ENV_FILE", "")
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitEnvFile(t *testing.T) {
	t.Setenv(EnvPrefix+"ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	_, err := LoadConfig()
	assert.Error(t, err)
}
