// Package credentials authenticates an admin identifier/secret pair and
// issues the session payload and signed token for it.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leadadmin/cmd/identity"
	"leadadmin/cmd/internal/auth/session"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// secret. Callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreUnavailable wraps identity store I/O failures.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)

// Hasher verifies secrets against stored hashes.
type Hasher interface {
	Verify(encoded, secret string) (bool, error)
	VerifyDummy(secret string)
	NeedsRehash(encoded string) bool
	Hash(secret string) (string, error)
}

// Result is a successful authentication.
type Result struct {
	Admin     identity.Admin
	Payload   session.Payload
	Token     string
	ExpiresAt time.Time
}

// Verifier implements Authenticate.
type Verifier struct {
	log    *slog.Logger
	store  identity.Store
	hasher Hasher
	signer session.Codec
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier wires a Verifier. signer encodes the returned token.
func NewVerifier(log *slog.Logger, store identity.Store, hasher Hasher, signer session.Codec, opts ...Option) (*Verifier, error) {
	if store == nil || hasher == nil || signer == nil {
		return nil, errors.New("credentials: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	v := &Verifier{log: log, store: store, hasher: hasher, signer: signer, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Authenticate checks identifier and secret. It returns ErrInvalidCredentials
// for an unknown identifier, a wrong secret or an unusable stored hash, and
// ErrStoreUnavailable when the lookup itself fails.
func (v *Verifier) Authenticate(ctx context.Context, identifier, secret string) (Result, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		v.hasher.VerifyDummy(secret)
		return Result{}, ErrInvalidCredentials
	}

	cred, err := v.store.GetCredential(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) {
			v.hasher.VerifyDummy(secret)
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := v.hasher.Verify(cred.PasswordHash, secret)
	if err != nil {
		v.log.Warn("auth.credentials.hash_unusable", "admin_id", cred.Admin.ID, "err", err)
		return Result{}, ErrInvalidCredentials
	}
	if !ok {
		return Result{}, ErrInvalidCredentials
	}

	now := v.now().UTC()
	if err := v.store.TouchLastLogin(ctx, cred.Admin.ID, now); err != nil {
		v.log.Warn("auth.credentials.touch_last_login.fail", "admin_id", cred.Admin.ID, "err", err)
	}
	v.maybeRehash(ctx, cred, secret, now)

	display := cred.Admin.DisplayName
	if display == "" {
		display = cred.Admin.Username
	}
	p := session.NewPayload(cred.Admin.ID, cred.Admin.Username, display, now)
	tok, err := v.signer.Encode(p)
	if err != nil {
		return Result{}, fmt.Errorf("credentials: sign session: %w", err)
	}

	return Result{Admin: cred.Admin, Payload: p, Token: tok, ExpiresAt: p.ExpiresAt()}, nil
}

// maybeRehash upgrades a hash produced under older argon2 parameters. It is
// best effort like the last-login stamp.
func (v *Verifier) maybeRehash(ctx context.Context, cred identity.Credential, secret string, now time.Time) {
	if !v.hasher.NeedsRehash(cred.PasswordHash) {
		return
	}
	enc, err := v.hasher.Hash(secret)
	if err != nil {
		v.log.Debug("auth.credentials.rehash.skip", "admin_id", cred.Admin.ID, "err", err)
		return
	}
	if err := v.store.UpdatePasswordHash(ctx, cred.Admin.ID, enc, now); err != nil {
		v.log.Warn("auth.credentials.rehash.fail", "admin_id", cred.Admin.ID, "err", err)
	}
}
