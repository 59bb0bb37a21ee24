package session

import "errors"

var (
	// ErrNoSession means the request carries no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrMalformedSession means the cookie or token could not be decoded
	// into a valid Payload, including signature and issuer failures.
	ErrMalformedSession = errors.New("malformed session")
	// ErrSessionExpired means the payload decoded but its TTL has elapsed.
	ErrSessionExpired = errors.New("session expired")

	ErrConfig = errors.New("invalid session config")
)
