package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	a, created, err := st.UpsertAdmin(ctx, UpsertAdminInput{Username: "  Ops.Admin ", PasswordHash: "h1", Now: now})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ops.Admin", a.Username)
	assert.Equal(t, "ops.admin", a.UsernameNorm)
	assert.Equal(t, "Ops.Admin", a.DisplayName)

	b, created, err := st.UpsertAdmin(ctx, UpsertAdminInput{Username: "ops.admin", DisplayName: "Ops", PasswordHash: "h2", Now: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)

	c, err := st.GetCredential(ctx, "OPS.ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "h2", c.PasswordHash)
	assert.Equal(t, "Ops", c.Admin.DisplayName)

	_, err = st.GetCredential(ctx, "nobody")
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_TouchLastLogin(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	a, _, err := st.UpsertAdmin(ctx, UpsertAdminInput{Username: "root", PasswordHash: "h"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))
	require.NoError(t, st.TouchLastLogin(ctx, a.ID, at))

	c, err := st.GetCredential(ctx, "root")
	require.NoError(t, err)
	require.NotNil(t, c.Admin.LastLoginAt)
	assert.True(t, c.Admin.LastLoginAt.Equal(at))
	assert.Equal(t, time.UTC, c.Admin.LastLoginAt.Location())

	assert.True(t, IsNotFound(st.TouchLastLogin(ctx, "missing", at)))
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	st := NewMemoryStore()
	_, _, err := st.UpsertAdmin(context.Background(), UpsertAdminInput{Username: " ", PasswordHash: "h"})
	assert.True(t, IsInvalidInput(err))

	err = st.InsertAudit(context.Background(), AuditEntry{})
	assert.True(t, IsInvalidInput(err))
}

func TestErrorKinds(t *testing.T) {
	err := ConflictError{Op: "identity.UpsertAdmin", Field: "username"}
	assert.True(t, IsConflict(err))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "identity.UpsertAdmin: conflict: username", err.Error())

	nf := NotFoundError{Op: "identity.GetCredential"}
	assert.Equal(t, "identity.GetCredential: not_found", nf.Error())

	op := OpError{Op: "x", Kind: ErrInvalidInput, Msg: "bad"}
	assert.Equal(t, "x: invalid_input: bad", op.Error())
	assert.True(t, IsInvalidInput(op))
}
