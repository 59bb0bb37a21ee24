// Package authapi serves the admin login, logout and session verification
// endpoints.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"leadadmin/cmd/internal/auth/credentials"
	"leadadmin/cmd/internal/auth/ratelimit"
	"leadadmin/cmd/internal/auth/session"
	"leadadmin/cmd/internal/httpx"
)

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (credentials.Result, error)
}

// Sessions is the cookie side of session.Manager.
type Sessions interface {
	Read(r *http.Request) session.Decision
	Start(w http.ResponseWriter, p session.Payload) error
	Clear(w http.ResponseWriter)
	Now() time.Time
}

// SessionEnder notifies live session watches that a subject logged out.
type SessionEnder interface {
	EndSession(subjectID string) int
}

// Recorder counts login and verify outcomes.
type Recorder interface {
	LoginAttempt(result string)
	VerifyResult(reason string)
}

// Handler wires HTTP auth endpoints to the credential verifier and the
// session cookie.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth     Authenticator
	sessions Sessions
	limiter  ratelimit.Limiter
	audit    AuditSink
	ender    SessionEnder
	rec      Recorder
}

// HandlerOption configures optional dependencies.
type HandlerOption func(*Handler)

// WithLimiter replaces the default no-op login limiter.
func WithLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.limiter = l
		}
	}
}

// WithAudit enables audit rows.
func WithAudit(a AuditSink) HandlerOption {
	return func(h *Handler) { h.audit = a }
}

// WithSessionEnder lets logout reach open websocket watches.
func WithSessionEnder(e SessionEnder) HandlerOption {
	return func(h *Handler) { h.ender = e }
}

// WithRecorder counts login and verify outcomes. A nil r keeps the no-op default.
func WithRecorder(r Recorder) HandlerOption {
	return func(h *Handler) {
		if r != nil {
			h.rec = r
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, auth Authenticator, sessions Sessions, opts ...HandlerOption) (*Handler, error) {
	if auth == nil || sessions == nil {
		return nil, errors.New("authapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		sessions: sessions,
		limiter:  ratelimit.Noop{},
		rec:      noopRecorder{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/session", h.handleSession)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := httpx.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()
	identifier := strings.TrimSpace(req.Username)

	if err := h.limiter.Check(ctx, identifier, ipString(ip)); err != nil {
		var limited ratelimit.LimitedError
		if errors.As(err, &limited) {
			h.rec.LoginAttempt("rate_limited")
			h.auditLoginRateLimited(ctx, ip, ua, identifier, limited.RetryAfter)
			writeRateLimited(w, limited.RetryAfter)
			return
		}
		// Fail open.
		h.log.Error("auth.login.throttle.fail", "err", err)
	}

	res, err := h.auth.Authenticate(ctx, identifier, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrInvalidCredentials):
		if ferr := h.limiter.Fail(ctx, identifier, ipString(ip)); ferr != nil {
			h.log.Error("auth.login.throttle.fail", "err", ferr)
		}
		h.rec.LoginAttempt("invalid")
		h.auditLoginFailed(ctx, ip, ua, identifier, "invalid_credentials")
		h.log.Info("auth.login.fail", "ip", ipString(ip))
		httpx.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	case errors.Is(err, credentials.ErrStoreUnavailable):
		h.rec.LoginAttempt("error")
		h.log.Error("auth.login.store_unavailable", "err", err)
		httpx.Error(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		return
	default:
		h.rec.LoginAttempt("error")
		h.log.Error("auth.login.error", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if err := h.sessions.Start(w, res.Payload); err != nil {
		h.rec.LoginAttempt("error")
		h.log.Error("auth.login.cookie.fail", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if err := h.limiter.Reset(ctx, identifier); err != nil {
		h.log.Warn("auth.login.throttle_reset.fail", "err", err)
	}

	h.rec.LoginAttempt("success")
	h.auditLoginSuccess(ctx, res.Admin.ID, ip, ua)
	h.log.Info("auth.login.success", "admin_id", res.Admin.ID, "ip", ipString(ip))

	resp := loginResponse{
		OK:        true,
		Identity:  toIdentityResponse(res.Payload),
		ExpiresAt: res.ExpiresAt,
	}
	if h.cfg.ExposeToken {
		resp.Token = res.Token
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// handleLogout always clears the cookie and answers 200, with or without a
// session.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	d := h.sessions.Read(r)
	h.sessions.Clear(w)

	if subject := d.Payload.SubjectID; subject != "" && (d.State == session.StateValid || d.State == session.StateExpired) {
		ended := 0
		if h.ender != nil {
			ended = h.ender.EndSession(subject)
		}
		h.auditLogout(r.Context(), subject, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
		h.log.Info("auth.logout", "admin_id", subject, "watches_ended", ended)
	}

	httpx.JSON(w, http.StatusOK, okResponse{OK: true})
}

// handleSession re-validates the cookie with the same Evaluator the route
// guard uses. The identity is echoed as decoded, never re-signed.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	d := h.sessions.Read(r)
	switch d.State {
	case session.StateValid:
		h.rec.VerifyResult("ok")
		id := toIdentityResponse(d.Payload)
		httpx.JSON(w, http.StatusOK, verifyResponse{OK: true, Identity: &id})
	case session.StateExpired:
		h.sessions.Clear(w)
		h.rec.VerifyResult(ReasonExpired)
		httpx.JSON(w, http.StatusUnauthorized, verifyResponse{Reason: ReasonExpired})
	case session.StateMalformed:
		h.rec.VerifyResult(ReasonInvalidSession)
		httpx.JSON(w, http.StatusUnauthorized, verifyResponse{Reason: ReasonInvalidSession})
	default:
		h.rec.VerifyResult(ReasonNoSession)
		httpx.JSON(w, http.StatusUnauthorized, verifyResponse{Reason: ReasonNoSession})
	}
}

type noopRecorder struct{}

func (noopRecorder) LoginAttempt(string) {}
func (noopRecorder) VerifyResult(string) {}
