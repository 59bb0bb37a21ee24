package authapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadadmin/cmd/internal/auth/session"
	"leadadmin/cmd/internal/httpx"
)

func toIdentityResponse(p session.Payload) identityResponse {
	return identityResponse{
		SubjectID:   p.SubjectID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		IssuedAt:    p.IssuedAt,
		ExpiresAt:   p.ExpiresAt(),
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int64((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	httpx.Error(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
