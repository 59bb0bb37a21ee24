package session

import "time"

// TTL is the fixed lifetime of a session.
const TTL = 8 * time.Hour

// IsExpired reports whether now is at or past issuedAt+ttl. Only
// now-issuedAt < ttl is active.
func IsExpired(issuedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(issuedAt) >= ttl
}

// State classifies a request's session.
type State int

const (
	StateNoSession State = iota
	StateMalformed
	StateExpired
	StateValid
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateMalformed:
		return "malformed"
	case StateExpired:
		return "expired"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating one cookie value.
type Decision struct {
	State   State
	Payload Payload
}

// Err maps the state onto the error taxonomy; nil when valid.
func (d Decision) Err() error {
	switch d.State {
	case StateValid:
		return nil
	case StateExpired:
		return ErrSessionExpired
	case StateMalformed:
		return ErrMalformedSession
	default:
		return ErrNoSession
	}
}

// Evaluator decodes a raw cookie value and applies IsExpired.
type Evaluator struct {
	codec Codec
	ttl   time.Duration
}

// NewEvaluator uses TTL for expiry.
func NewEvaluator(codec Codec) *Evaluator {
	return &Evaluator{codec: codec, ttl: TTL}
}

// Evaluate classifies raw. present is false when no cookie was sent.
func (e *Evaluator) Evaluate(raw string, present bool, now time.Time) Decision {
	if !present {
		return Decision{State: StateNoSession}
	}
	p, err := e.codec.Decode(raw)
	if err != nil {
		return Decision{State: StateMalformed}
	}
	if IsExpired(p.IssuedAt, now.UTC(), e.ttl) {
		return Decision{State: StateExpired, Payload: p}
	}
	return Decision{State: StateValid, Payload: p}
}
