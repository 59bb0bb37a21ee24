package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadadmin/cmd/identity/ids"
)

// Protocol version and message types of leadadmin.session.v1.
const (
	Version = 1

	// Server to client.
	TypeSessionActive  = "session.active"
	TypeSessionExpired = "session.expired"
	TypeSessionEnded   = "session.ended"
	TypeError          = "error"

	// Client to server.
	TypeSessionCheck = "session.check"
)

// Close codes in the application range.
const (
	StatusSessionExpired = 4001
	StatusSessionEnded   = 4002
)

// Envelope is the frame format in both directions.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Validate checks an inbound envelope. Only session.check is accepted from
// clients.
func (e Envelope) Validate() error {
	if e.V != Version {
		return fmt.Errorf("invalid protocol version: got=%d want=%d", e.V, Version)
	}
	if e.Type == "" {
		return errors.New("missing type")
	}
	if e.Type != TypeSessionCheck {
		return fmt.Errorf("unsupported type: %s", e.Type)
	}
	return nil
}

// terminal reports whether the connection closes after this envelope is
// written, and with which status.
func (e Envelope) terminal() (int, string, bool) {
	switch e.Type {
	case TypeSessionExpired:
		return StatusSessionExpired, "session expired", true
	case TypeSessionEnded:
		return StatusSessionEnded, "session ended", true
	}
	return 0, "", false
}

type SessionActivePayload struct {
	SubjectID string    `json:"subjectId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionEndPayload struct {
	SubjectID string `json:"subjectId"`
	Reason    string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEnvelope(typ string, payload any, ts time.Time) Envelope {
	raw, _ := json.Marshal(payload)
	id, err := ids.NewULID(ts)
	if err != nil {
		id = ""
	}
	return Envelope{V: Version, Type: typ, ID: id, TS: ts.UTC(), Payload: raw}
}
