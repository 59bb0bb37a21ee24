package identity

import (
	"errors"

	"leadadmin/cmd/security/password"
)

// dummySecret is hashed once per hasher so that a login for an unknown
// username burns the same argon2 cost as a real one.
const dummySecret = "leadadmin-timing-equalizer-secret"

// PasswordHasher adapts security/password to account records.
type PasswordHasher struct {
	cfg   password.Config
	dummy string
}

// NewPasswordHasher builds a hasher and precomputes its dummy hash.
func NewPasswordHasher(cfg password.Config) (*PasswordHasher, error) {
	dummyCfg := cfg
	dummyCfg.Policy.MinLength = 1
	dummyCfg.Policy.RejectVeryWeak = false
	dummy, err := dummyCfg.Hash(dummySecret)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cfg: cfg, dummy: dummy}, nil
}

// Hash applies the password policy and hashes secret.
func (h *PasswordHasher) Hash(secret string) (string, error) {
	enc, err := h.cfg.Hash(secret)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrWeakPassword) {
			return "", OpError{Op: "identity.HashPassword", Kind: ErrInvalidInput, Msg: err.Error()}
		}
		return "", err
	}
	return enc, nil
}

// Verify compares secret with encoded in constant time. A malformed stored
// hash is reported as a mismatch together with password.ErrInvalidHash.
func (h *PasswordHasher) Verify(encoded, secret string) (bool, error) {
	return h.cfg.Verify(encoded, secret)
}

// VerifyDummy spends one verification on the dummy hash.
func (h *PasswordHasher) VerifyDummy(secret string) {
	_, _ = h.cfg.Verify(h.dummy, secret)
}

// NeedsRehash reports whether encoded should be replaced by a fresh hash.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	return h.cfg.NeedsRehash(encoded)
}
