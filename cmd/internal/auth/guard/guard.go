// Package guard protects route prefixes with the session cookie.
//
// Every request under a protected prefix is classified by the session
// Evaluator and then either forwarded with the payload on its context or
// redirected to the login page. Only an expired session clears the cookie.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"leadadmin/cmd/internal/auth/session"
)

// DefaultLoginPath is where unauthenticated requests are sent.
const DefaultLoginPath = "/login"

// DefaultPrefixes are protected when Config.Prefixes is empty.
var DefaultPrefixes = []string{"/dashboard"}

// Reader is the part of session.Manager the guard needs.
type Reader interface {
	Read(r *http.Request) session.Decision
	Clear(w http.ResponseWriter)
}

// Recorder counts decisions by state name. *metrics.Metrics implements it.
type Recorder interface {
	GuardDecision(state string)
}

// Config names the protected path prefixes and where rejected requests go.
type Config struct {
	Prefixes  []string `env:"GUARD_PREFIXES" envSeparator:","`
	LoginPath string   `env:"GUARD_LOGIN_PATH" envDefault:"/login"`
}

// Guard is net/http middleware.
type Guard struct {
	log      *slog.Logger
	sessions Reader
	rec      Recorder
	prefixes []string
	login    string
}

// New builds a guard. rec may be nil.
func New(log *slog.Logger, sessions Reader, rec Recorder, cfg Config) *Guard {
	if log == nil {
		log = slog.Default()
	}
	login := strings.TrimSpace(cfg.LoginPath)
	if login == "" {
		login = DefaultLoginPath
	}
	var prefixes []string
	for _, p := range cfg.Prefixes {
		p = "/" + strings.Trim(strings.TrimSpace(p), "/")
		if p != "/" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return &Guard{log: log, sessions: sessions, rec: rec, prefixes: prefixes, login: login}
}

// Protected reports whether path falls under a protected prefix. Matching is
// by whole segment: /dashboard and /dashboard/x match, /dashboardx does not.
func (g *Guard) Protected(path string) bool {
	for _, p := range g.prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Wrap returns next behind the guard.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Protected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		d := g.sessions.Read(r)
		if g.rec != nil {
			g.rec.GuardDecision(d.State.String())
		}

		switch d.State {
		case session.StateValid:
			g.log.Debug("guard.allow", "path", r.URL.Path, "subject_id", d.Payload.SubjectID)
			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), d.Payload)))
			return
		case session.StateExpired:
			g.sessions.Clear(w)
		}

		g.log.Debug("guard.redirect", "path", r.URL.Path, "state", d.State.String())
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, g.login, http.StatusFound)
	})
}

type ctxKey struct{}

// WithPayload attaches p to ctx.
func WithPayload(ctx context.Context, p session.Payload) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PayloadFromContext returns the payload the guard accepted.
func PayloadFromContext(ctx context.Context) (session.Payload, bool) {
	p, ok := ctx.Value(ctxKey{}).(session.Payload)
	return p, ok
}
