package session

import (
	"errors"
	"fmt"
	"time"

	"leadadmin/cmd/security/token"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	IssuedAtMS  int64  `json:"iat_ms"`
	jwt.RegisteredClaims
}

type jwtSigner struct {
	issuer string
	secret []byte
	parser *jwt.Parser
}

func newJWTSigner(issuer, secret string) (*jwtSigner, error) {
	key, err := token.HMACKey(secret, token.MinHMACKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: signing secret: %v", ErrConfig, err)
	}
	return &jwtSigner{
		issuer: issuer,
		secret: key,
		// exp is judged by the Evaluator, not the parser.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

func (s *jwtSigner) sign(w wirePayload, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwtClaims{
		Username:    w.Username,
		DisplayName: w.DisplayName,
		IssuedAtMS:  w.IssuedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   w.SubjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *jwtSigner) verify(tok string) (wirePayload, error) {
	var claims jwtClaims
	_, err := s.parser.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return wirePayload{}, err
	}
	if claims.Issuer != s.issuer {
		return wirePayload{}, errors.New("issuer mismatch")
	}
	if claims.ExpiresAt == nil {
		return wirePayload{}, errors.New("missing exp")
	}
	return wirePayload{
		SubjectID:   claims.Subject,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		IssuedAt:    claims.IssuedAtMS,
	}, nil
}
