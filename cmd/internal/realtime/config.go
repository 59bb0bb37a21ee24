package realtime

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	Subprotocol = "leadadmin.session.v1"

	maxFrameBytes = 4 << 10

	defaultRateEvents = 20
	defaultRateWindow = 10 * time.Second

	maxPingFailures = 3
	closeGrace      = time.Second
)

// Config tunes the session watch endpoint.
type Config struct {
	// DevInsecure skips the websocket library's own origin verification.
	DevInsecure    bool     `env:"WS_DEV_INSECURE" envDefault:"false"`
	OriginRequired bool     `env:"WS_ORIGIN_REQUIRED" envDefault:"true"`
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envDefault:"http://localhost,http://127.0.0.1" envSeparator:","`

	WriteTimeout     time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
	HeartbeatEvery   time.Duration `env:"WS_HEARTBEAT_INTERVAL" envDefault:"25s"`
	HeartbeatTimeout time.Duration `env:"WS_HEARTBEAT_TIMEOUT" envDefault:"5s"`
	SendQueueSize    int           `env:"WS_SEND_QUEUE" envDefault:"16"`

	RateEvents int           `env:"WS_RATE_EVENTS" envDefault:"20"`
	RateWindow time.Duration `env:"WS_RATE_WINDOW" envDefault:"10s"`
}

func DefaultConfig() Config {
	return Config{
		OriginRequired:   true,
		AllowedOrigins:   []string{"http://localhost", "http://127.0.0.1"},
		WriteTimeout:     5 * time.Second,
		HeartbeatEvery:   25 * time.Second,
		HeartbeatTimeout: 5 * time.Second,
		SendQueueSize:    16,
		RateEvents:       defaultRateEvents,
		RateWindow:       defaultRateWindow,
	}
}

// LoadConfigFromEnv reads ADMIN_WS_*.
func LoadConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "ADMIN_"})
	if err != nil {
		return Config{}, fmt.Errorf("realtime: config: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = def.HeartbeatEvery
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = def.SendQueueSize
	}
	return c
}
