// Package token holds key material checks and keyed digests shared by the
// session signer and the login limiter.
package token
