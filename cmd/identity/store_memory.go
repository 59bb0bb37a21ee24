package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured
// and by tests. Audit entries are kept in insertion order.
type MemoryStore struct {
	mu     sync.Mutex
	byNorm map[string]Credential
	audit  []AuditEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byNorm: make(map[string]Credential)}
}

func (m *MemoryStore) GetCredential(ctx context.Context, username string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byNorm[NormalizeUsername(username)]
	if !ok {
		return Credential{}, NotFoundError{Op: "identity.GetCredential", Resource: "admin"}
	}
	return c, nil
}

func (m *MemoryStore) TouchLastLogin(_ context.Context, adminID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, c := range m.byNorm {
		if c.Admin.ID == adminID {
			t := at.UTC()
			c.Admin.LastLoginAt = &t
			m.byNorm[k] = c
			return nil
		}
	}
	return NotFoundError{Op: "identity.TouchLastLogin", Resource: "admin"}
}

func (m *MemoryStore) UpdatePasswordHash(_ context.Context, adminID, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, c := range m.byNorm {
		if c.Admin.ID == adminID {
			c.PasswordHash = hash
			c.Admin.UpdatedAt = now.UTC()
			m.byNorm[k] = c
			return nil
		}
	}
	return NotFoundError{Op: "identity.UpdatePasswordHash", Resource: "admin"}
}

func (m *MemoryStore) UpsertAdmin(_ context.Context, in UpsertAdminInput) (Admin, bool, error) {
	const op = "identity.UpsertAdmin"

	username := strings.TrimSpace(in.Username)
	norm := NormalizeUsername(username)
	if norm == "" {
		return Admin{}, false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return Admin{}, false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = username
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.byNorm[norm]
	if !exists {
		id, err := NewULID(now)
		if err != nil {
			return Admin{}, false, err
		}
		c.Admin.ID = id
		c.Admin.CreatedAt = now
	}
	c.Admin.Username = username
	c.Admin.UsernameNorm = norm
	c.Admin.DisplayName = display
	c.Admin.UpdatedAt = now
	c.PasswordHash = in.PasswordHash
	m.byNorm[norm] = c
	return c.Admin, !exists, nil
}

func (m *MemoryStore) InsertAudit(_ context.Context, e AuditEntry) error {
	if strings.TrimSpace(e.Action) == "" {
		return OpError{Op: "identity.InsertAudit", Kind: ErrInvalidInput, Msg: "empty action"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

// Audit returns a copy of the recorded audit entries.
func (m *MemoryStore) Audit() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.audit...)
}
