package session

import (
	"fmt"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// pasetoSigner issues v4.public tokens with an Ed25519 key pair.
type pasetoSigner struct {
	issuer string
	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

func newPasetoSigner(issuer, secretHex string) (*pasetoSigner, error) {
	secretHex = strings.TrimSpace(secretHex)
	if secretHex == "" {
		return nil, fmt.Errorf("%w: paseto secret key missing", ErrConfig)
	}
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: paseto secret key: %v", ErrConfig, err)
	}
	return &pasetoSigner{issuer: issuer, secret: secret, public: secret.Public()}, nil
}

func (s *pasetoSigner) sign(w wirePayload, issuedAt, expiresAt time.Time) (string, error) {
	tok := paseto.NewToken()
	tok.SetIssuer(s.issuer)
	tok.SetSubject(w.SubjectID)
	tok.SetIssuedAt(issuedAt)
	tok.SetNotBefore(issuedAt)
	tok.SetExpiration(expiresAt)
	tok.SetString("username", w.Username)
	if w.DisplayName != "" {
		tok.SetString("displayName", w.DisplayName)
	}
	if err := tok.Set("iat_ms", w.IssuedAt); err != nil {
		return "", err
	}
	return tok.V4Sign(s.secret, nil), nil
}

func (s *pasetoSigner) verify(raw string) (wirePayload, error) {
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(s.issuer))

	tok, err := p.ParseV4Public(s.public, raw, nil)
	if err != nil {
		return wirePayload{}, err
	}

	sub, err := tok.GetSubject()
	if err != nil {
		return wirePayload{}, err
	}
	username, err := tok.GetString("username")
	if err != nil {
		return wirePayload{}, err
	}
	display, _ := tok.GetString("displayName")

	var ms int64
	if err := tok.Get("iat_ms", &ms); err != nil {
		return wirePayload{}, err
	}

	return wirePayload{SubjectID: sub, Username: username, DisplayName: display, IssuedAt: ms}, nil
}
