package identity

import (
	"context"
	"time"
)

// Admin is an account allowed into the dashboard.
type Admin struct {
	ID           string
	Username     string
	UsernameNorm string
	DisplayName  string

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credential is an Admin plus its stored secret hash. It never leaves the
// process.
type Credential struct {
	Admin        Admin
	PasswordHash string
}

// UpsertAdminInput creates an account or replaces the display name and hash
// of an existing one with the same normalized username.
type UpsertAdminInput struct {
	Username     string
	DisplayName  string
	PasswordHash string
	Now          time.Time
}

// AuditEntry is one row of the login audit trail.
type AuditEntry struct {
	Action    string
	AdminID   *string
	IP        string
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// Store is the admin-account persistence boundary.
type Store interface {
	// GetCredential returns NotFoundError when no account has the username.
	GetCredential(ctx context.Context, username string) (Credential, error)
	TouchLastLogin(ctx context.Context, adminID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, adminID, hash string, now time.Time) error
	UpsertAdmin(ctx context.Context, in UpsertAdminInput) (Admin, bool, error)
	InsertAudit(ctx context.Context, e AuditEntry) error
}
