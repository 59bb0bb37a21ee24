package session

import (
	"fmt"
	"strings"
	"time"
)

const (
	FormatJWT    = "jwt"
	FormatPASETO = "paseto"
)

// signer issues and verifies one token format. verify checks signature,
// algorithm and issuer only; expiry belongs to the Evaluator.
type signer interface {
	sign(w wirePayload, issuedAt, expiresAt time.Time) (string, error)
	verify(token string) (wirePayload, error)
}

// SignedCodec is the tamper-resistant form: payload fields become claims and
// exp is IssuedAt + TTL.
type SignedCodec struct {
	s signer
}

// NewSignedCodec builds the codec for cfg.TokenFormat.
func NewSignedCodec(cfg Config) (*SignedCodec, error) {
	var (
		s   signer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.TokenFormat)) {
	case "", FormatJWT:
		s, err = newJWTSigner(cfg.Issuer, cfg.SigningSecret)
	case FormatPASETO:
		s, err = newPasetoSigner(cfg.Issuer, cfg.PasetoSecretKeyHex)
	default:
		return nil, fmt.Errorf("%w: unknown token format %q", ErrConfig, cfg.TokenFormat)
	}
	if err != nil {
		return nil, err
	}
	return &SignedCodec{s: s}, nil
}

func (c *SignedCodec) Encode(p Payload) (string, error) {
	if !p.valid() {
		return "", fmt.Errorf("%w: invalid payload", ErrMalformedSession)
	}
	return c.s.sign(toWire(p), p.IssuedAt, p.ExpiresAt())
}

func (c *SignedCodec) Decode(token string) (Payload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Payload{}, ErrMalformedSession
	}
	w, err := c.s.verify(token)
	if err != nil {
		return Payload{}, ErrMalformedSession
	}
	p := fromWire(w)
	if !p.valid() {
		return Payload{}, ErrMalformedSession
	}
	return p, nil
}
