// Package session implements claim-based admin sessions.
//
// A session is a Payload (subject, username, display name, issue instant)
// carried entirely by the client in the adminSession cookie. There is no
// server-side session table: expiry is derived from IssuedAt by IsExpired and
// a session cannot be revoked before its TTL elapses.
//
// Two encodings exist. PlainCodec is unsigned base64url JSON used for the
// cookie by default. SignedCodec wraps the payload in a JWT (HS256) or a
// PASETO v4.public token with the expiry embedded as a claim.
//
// Every consumer (route guard, verification endpoint, websocket watch) goes
// through Evaluator so the expiry arithmetic exists in exactly one place.
package session
