package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieStore reads and writes the session cookie. The cookie is HttpOnly,
// root-scoped, first-party and, outside development, Secure.
type CookieStore struct {
	name     string
	domain   string
	secure   bool
	sameSite http.SameSite
	now      func() time.Time
}

// NewCookieStore builds a store from cfg.
func NewCookieStore(cfg Config) *CookieStore {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieStore{
		name:     name,
		domain:   strings.TrimSpace(cfg.CookieDomain),
		secure:   !cfg.Development(),
		sameSite: cfg.SameSite(),
		now:      time.Now,
	}
}

// Name is the cookie name.
func (s *CookieStore) Name() string { return s.name }

// Set writes value with a lifetime ending at expiresAt, capped at TTL.
func (s *CookieStore) Set(w http.ResponseWriter, value string, expiresAt time.Time) {
	now := s.now().UTC()
	life := expiresAt.Sub(now)
	if life > TTL {
		life = TTL
		expiresAt = now.Add(TTL)
	}
	maxAge := int(life / time.Second)
	if maxAge <= 0 {
		s.Clear(w)
		return
	}

	http.SetCookie(w, s.cookie(value, maxAge, expiresAt.UTC()))
}

// Clear overwrites the cookie with an empty value that expires immediately
// (Max-Age=0, Expires in 1970).
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1, time.Unix(0, 0).UTC()))
}

// Get returns the raw value, or false when the cookie is absent or blank.
func (s *CookieStore) Get(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *CookieStore) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
	}
}
