package guard

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadadmin/cmd/internal/auth/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder map[string]int

func (c countingRecorder) GuardDecision(state string) { c[state]++ }

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestGuard(t *testing.T, now time.Time) (*Guard, *session.Manager, countingRecorder) {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.SigningSecret = strings.Repeat("k", 32)
	m, err := session.NewManager(cfg, session.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	rec := countingRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, m, rec, Config{}), m, rec
}

func sessionCookie(t *testing.T, issuedAt time.Time) *http.Cookie {
	t.Helper()
	v, err := session.PlainCodec{}.Encode(session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", issuedAt))
	require.NoError(t, err)
	return &http.Cookie{Name: session.DefaultCookieName, Value: v}
}

func okHandler(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		p, ok := PayloadFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "ops", p.Username)
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard_NoCookieRedirects(t *testing.T) {
	g, _, rec := newTestGuard(t, base)
	called := false

	w := httptest.NewRecorder()
	g.Wrap(okHandler(t, &called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/reports", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Empty(t, w.Header().Values("Set-Cookie"))
	assert.Equal(t, 1, rec["no_session"])
}

func TestGuard_PublicPathIgnoresAnyCookieState(t *testing.T) {
	g, _, rec := newTestGuard(t, base.Add(9*time.Hour))

	cookies := map[string]*http.Cookie{
		"none":      nil,
		"expired":   sessionCookie(t, base),
		"valid":     sessionCookie(t, base.Add(8*time.Hour)),
		"malformed": {Name: session.DefaultCookieName, Value: "not-base64!"},
	}
	for name, c := range cookies {
		t.Run(name, func(t *testing.T) {
			called := false
			r := httptest.NewRequest(http.MethodGet, "/public/about", nil)
			if c != nil {
				r.AddCookie(c)
			}
			w := httptest.NewRecorder()
			g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				_, ok := PayloadFromContext(r.Context())
				assert.False(t, ok)
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, r)

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Values("Set-Cookie"))
			assert.Empty(t, w.Header().Get("Location"))
		})
	}
	assert.Empty(t, rec)
}

func TestGuard_ValidForwards(t *testing.T) {
	g, _, rec := newTestGuard(t, base.Add(time.Hour))
	called := false

	r := httptest.NewRequest(http.MethodGet, "/dashboard/api/leads", nil)
	r.AddCookie(sessionCookie(t, base))
	w := httptest.NewRecorder()
	g.Wrap(okHandler(t, &called)).ServeHTTP(w, r)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Values("Set-Cookie"))
	assert.Equal(t, 1, rec["valid"])
}

func TestGuard_ExpiredRedirectsAndClears(t *testing.T) {
	g, _, rec := newTestGuard(t, base.Add(9*time.Hour))
	called := false

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(sessionCookie(t, base))
	w := httptest.NewRecorder()
	g.Wrap(okHandler(t, &called)).ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	sc := w.Header().Get("Set-Cookie")
	assert.Contains(t, sc, session.DefaultCookieName+"=;")
	assert.Contains(t, sc, "Max-Age=0")
	assert.Equal(t, 1, rec["expired"])
}

func TestGuard_ExactlyTTLIsExpired(t *testing.T) {
	g, _, _ := newTestGuard(t, base.Add(session.TTL))
	called := false

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(sessionCookie(t, base))
	w := httptest.NewRecorder()
	g.Wrap(okHandler(t, &called)).ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestGuard_MalformedRedirectsWithoutClearing(t *testing.T) {
	g, _, rec := newTestGuard(t, base)
	called := false

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "not-base64!"})
	w := httptest.NewRecorder()
	g.Wrap(okHandler(t, &called)).ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, w.Header().Values("Set-Cookie"))
	assert.Equal(t, 1, rec["malformed"])
}

func TestGuard_UnprotectedBypasses(t *testing.T) {
	g, _, rec := newTestGuard(t, base)

	for _, path := range []string{"/", "/login", "/dashboardx", "/api/auth/session"} {
		called := false
		w := httptest.NewRecorder()
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			_, ok := PayloadFromContext(r.Context())
			assert.False(t, ok)
		})
		g.Wrap(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.True(t, called, path)
	}
	assert.Empty(t, rec)
}

func TestProtected_CustomPrefixes(t *testing.T) {
	g := New(nil, nil, nil, Config{Prefixes: []string{" admin/ ", "/reports"}})

	assert.True(t, g.Protected("/admin"))
	assert.True(t, g.Protected("/admin/users"))
	assert.True(t, g.Protected("/reports/q1"))
	assert.False(t, g.Protected("/dashboard"))
	assert.False(t, g.Protected("/administrator"))
}
