package session

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

var testSecret = strings.Repeat("s", 32)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SigningSecret = testSecret
	return cfg
}

func pasetoConfig() Config {
	cfg := DefaultConfig()
	cfg.TokenFormat = FormatPASETO
	cfg.PasetoSecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
	return cfg
}

func testPayload(issuedAt time.Time) Payload {
	return NewPayload("01J0000000000000000000ADMN", "ops", "Ops Team", issuedAt)
}
