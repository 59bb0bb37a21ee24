package session

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Payload is the identity and issue instant that define one login session.
// IssuedAt is set once at authentication and never changes.
type Payload struct {
	SubjectID   string
	Username    string
	DisplayName string
	IssuedAt    time.Time
}

// NewPayload stamps IssuedAt with now in UTC at millisecond precision, the
// precision both wire forms carry.
func NewPayload(subjectID, username, displayName string, now time.Time) Payload {
	return Payload{
		SubjectID:   subjectID,
		Username:    username,
		DisplayName: displayName,
		IssuedAt:    now.UTC().Truncate(time.Millisecond),
	}
}

// ExpiresAt is IssuedAt plus TTL.
func (p Payload) ExpiresAt() time.Time {
	return p.IssuedAt.Add(TTL)
}

// Equal compares payloads using time.Time.Equal for IssuedAt.
func (p Payload) Equal(o Payload) bool {
	return p.SubjectID == o.SubjectID &&
		p.Username == o.Username &&
		p.DisplayName == o.DisplayName &&
		p.IssuedAt.Equal(o.IssuedAt)
}

// Text fields must be valid UTF-8 to survive the JSON round trip.
func (p Payload) valid() bool {
	return strings.TrimSpace(p.SubjectID) != "" &&
		strings.TrimSpace(p.Username) != "" &&
		utf8.ValidString(p.SubjectID) &&
		utf8.ValidString(p.Username) &&
		utf8.ValidString(p.DisplayName) &&
		p.IssuedAt.UnixMilli() > 0
}

// wirePayload is the JSON shape shared by the plain form and the signed
// claims: {"subjectId","username","displayName","issuedAt": unix ms}.
type wirePayload struct {
	SubjectID   string `json:"subjectId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	IssuedAt    int64  `json:"issuedAt"`
}

func toWire(p Payload) wirePayload {
	return wirePayload{
		SubjectID:   p.SubjectID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		IssuedAt:    p.IssuedAt.UnixMilli(),
	}
}

func fromWire(w wirePayload) Payload {
	return Payload{
		SubjectID:   w.SubjectID,
		Username:    w.Username,
		DisplayName: w.DisplayName,
		IssuedAt:    time.UnixMilli(w.IssuedAt).UTC(),
	}
}
