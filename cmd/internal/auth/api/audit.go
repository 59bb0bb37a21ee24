package authapi

import (
	"context"
	"net"
	"strings"
	"time"

	"leadadmin/cmd/identity"
)

// AuditSink receives login audit rows. identity.Store implements it.
type AuditSink interface {
	InsertAudit(ctx context.Context, e identity.AuditEntry) error
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, identifier, reason string) {
	h.insertAudit(ctx, "auth.login.failed", nil, ip, ua, map[string]any{
		"identifier": identifier,
		"reason":     reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, adminID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.login.success", &adminID, ip, ua, nil)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", nil, ip, ua, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditLogout(ctx context.Context, adminID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.logout", &adminID, ip, ua, nil)
}

// insertAudit is best effort and detached from request cancellation.
func (h *Handler) insertAudit(ctx context.Context, action string, adminID *string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	err := h.audit.InsertAudit(ctx, identity.AuditEntry{
		Action:    action,
		AdminID:   adminID,
		IP:        ipString(ip),
		UserAgent: strings.TrimSpace(ua),
		Meta:      meta,
		At:        h.sessions.Now(),
	})
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}
