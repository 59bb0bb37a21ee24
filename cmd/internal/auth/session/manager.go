package session

import (
	"net/http"
	"strings"
	"time"
)

// Manager ties the cookie store, the cookie codec and the Evaluator together
// for HTTP consumers.
type Manager struct {
	cookies *CookieStore
	codec   Codec
	signed  *SignedCodec
	eval    *Evaluator
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces time.Now for both issuing and evaluating.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
			m.cookies.now = now
		}
	}
}

// NewManager validates cfg and builds the codecs it names.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	signed, err := NewSignedCodec(cfg)
	if err != nil {
		return nil, err
	}

	var codec Codec = PlainCodec{}
	if strings.EqualFold(cfg.CookieFormat, CookieFormatSigned) {
		codec = signed
	}

	m := &Manager{
		cookies: NewCookieStore(cfg),
		codec:   codec,
		signed:  signed,
		eval:    NewEvaluator(codec),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Now is the manager's clock in UTC.
func (m *Manager) Now() time.Time { return m.now().UTC() }

// Signer is the signed codec used for tokens handed to API clients.
func (m *Manager) Signer() Codec { return m.signed }

// CookieName is the session cookie name.
func (m *Manager) CookieName() string { return m.cookies.Name() }

// Read evaluates the request's session cookie at the current time.
func (m *Manager) Read(r *http.Request) Decision {
	raw, ok := m.cookies.Get(r)
	return m.eval.Evaluate(raw, ok, m.Now())
}

// Start writes p into the session cookie.
func (m *Manager) Start(w http.ResponseWriter, p Payload) error {
	v, err := m.codec.Encode(p)
	if err != nil {
		return err
	}
	m.cookies.Set(w, v, p.ExpiresAt())
	return nil
}

// Clear removes the session cookie. Safe to call without a session.
func (m *Manager) Clear(w http.ResponseWriter) {
	m.cookies.Clear(w)
}
