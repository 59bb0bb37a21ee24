package identity

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"leadadmin/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require ADMIN_DATABASE_URL.

func TestPostgresStore_AdminLifecycle(t *testing.T) {
	pool := mustOpenTestPool(t)
	schema := mustCreateSchema(t, pool)

	st, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a, created, err := st.UpsertAdmin(ctx, UpsertAdminInput{Username: "Ops", PasswordHash: "$argon2id$fake", Now: now})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := st.UpsertAdmin(ctx, UpsertAdminInput{Username: "OPS", DisplayName: "Operations", PasswordHash: "$argon2id$fake2", Now: now})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)

	c, err := st.GetCredential(ctx, " ops ")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$fake2", c.PasswordHash)
	assert.Equal(t, "Operations", c.Admin.DisplayName)
	assert.Nil(t, c.Admin.LastLoginAt)

	require.NoError(t, st.TouchLastLogin(ctx, a.ID, now))
	c, err = st.GetCredential(ctx, "ops")
	require.NoError(t, err)
	require.NotNil(t, c.Admin.LastLoginAt)
	assert.True(t, c.Admin.LastLoginAt.Equal(now))

	_, err = st.GetCredential(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, st.InsertAudit(ctx, AuditEntry{Action: "auth.login.success", AdminID: &a.ID, IP: "127.0.0.1", Meta: map[string]any{"k": "v"}}))
}

func TestWithSchema_RejectsBadIdentifier(t *testing.T) {
	_, err := NewPostgresStore(nil, WithSchema("bad-schema;"))
	require.Error(t, err)

	_, err = NewPostgresStore(nil)
	require.Error(t, err)
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("ADMIN_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: ADMIN_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("integration test skipped: postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func mustCreateSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	id, err := ids.NewULID(time.Now())
	require.NoError(t, err)
	schema := "leadadmin_it_" + strings.ToLower(id)
	q := pgx.Identifier{schema}.Sanitize()

	ctx := context.Background()
	_, err = pool.Exec(ctx, `CREATE SCHEMA `+q)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DROP SCHEMA `+q+` CASCADE`) })

	_, err = pool.Exec(ctx, `
		CREATE TABLE `+q+`.admin_users (
			id text PRIMARY KEY,
			username text NOT NULL,
			username_norm text NOT NULL CONSTRAINT uq_admin_users_username_norm UNIQUE,
			display_name text NOT NULL,
			password_hash text NOT NULL,
			last_login_at timestamptz,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		);
		CREATE TABLE `+q+`.admin_audit_log (
			id bigserial PRIMARY KEY,
			admin_id text,
			action text NOT NULL,
			created_at timestamptz NOT NULL,
			ip inet,
			user_agent text,
			meta jsonb
		);`)
	require.NoError(t, err)
	return schema
}
