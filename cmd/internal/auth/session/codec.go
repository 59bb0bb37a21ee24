package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Codec turns a Payload into a transport-safe string and back. Decode
// returns ErrMalformedSession for anything that is not a valid Payload.
type Codec interface {
	Encode(p Payload) (string, error)
	Decode(s string) (Payload, error)
}

// PlainCodec encodes the payload as unpadded base64url JSON. It carries no
// signature.
type PlainCodec struct{}

func (PlainCodec) Encode(p Payload) (string, error) {
	if !p.valid() {
		return "", fmt.Errorf("%w: invalid payload", ErrMalformedSession)
	}
	b, err := json.Marshal(toWire(p))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (PlainCodec) Decode(s string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Payload{}, ErrMalformedSession
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return Payload{}, ErrMalformedSession
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Payload{}, ErrMalformedSession
	}

	p := fromWire(w)
	if !p.valid() {
		return Payload{}, ErrMalformedSession
	}
	return p, nil
}
