package authapi

import "time"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityResponse struct {
	SubjectID   string    `json:"subjectId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type loginResponse struct {
	OK        bool             `json:"ok"`
	Identity  identityResponse `json:"identity"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type verifyResponse struct {
	OK       bool              `json:"ok"`
	Identity *identityResponse `json:"identity,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

// Verify reasons.
const (
	ReasonNoSession      = "no_session"
	ReasonInvalidSession = "invalid_session"
	ReasonExpired        = "session_expired"
)
