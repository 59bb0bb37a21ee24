package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema holds the admin tables created by the embedded migrations.
const DefaultSchema = "leadadmin"

// PostgresStore implements Store over PostgreSQL. Identifiers are quoted via
// pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema overrides DefaultSchema. The name must be a legal identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) GetCredential(ctx context.Context, username string) (Credential, error) {
	const op = "identity.GetCredential"

	norm := NormalizeUsername(username)
	if norm == "" {
		return Credential{}, NotFoundError{Op: op, Resource: "admin"}
	}

	var (
		c         Credential
		lastLogin *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, username_norm, display_name, password_hash, last_login_at, created_at, updated_at
		   FROM `+pgIdent(s.schema, "admin_users")+`
		  WHERE username_norm = $1`,
		norm,
	).Scan(
		&c.Admin.ID,
		&c.Admin.Username,
		&c.Admin.UsernameNorm,
		&c.Admin.DisplayName,
		&c.PasswordHash,
		&lastLogin,
		&c.Admin.CreatedAt,
		&c.Admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, NotFoundError{Op: op, Resource: "admin"}
		}
		return Credential{}, fmt.Errorf("%s: %w", op, err)
	}
	c.Admin.LastLoginAt = lastLogin
	return c, nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, adminID string, at time.Time) error {
	const op = "identity.TouchLastLogin"

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "admin_users")+` SET last_login_at = $2 WHERE id = $1`,
		adminID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "admin"}
	}
	return nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, adminID, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if strings.TrimSpace(hash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty hash"}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "admin_users")+` SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		adminID, hash, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "admin"}
	}
	return nil
}

// UpsertAdmin inserts or updates by normalized username in one transaction.
// The bool result is true when a new row was created.
func (s *PostgresStore) UpsertAdmin(ctx context.Context, in UpsertAdminInput) (Admin, bool, error) {
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return Admin{}, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := pgIdent(s.schema, "admin_users")

	out := Admin{Username: username, UsernameNorm: norm, DisplayName: display, UpdatedAt: now}
	var lastLogin *time.Time
	err = tx.QueryRow(ctx,
		`SELECT id, created_at, last_login_at FROM `+table+` WHERE username_norm = $1 FOR UPDATE`,
		norm,
	).Scan(&out.ID, &out.CreatedAt, &lastLogin)

	created := false
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id, idErr := NewULID(now)
		if idErr != nil {
			return Admin{}, false, idErr
		}
		out.ID, out.CreatedAt, created = id, now, true
		_, err = tx.Exec(ctx,
			`INSERT INTO `+table+` (id, username, username_norm, display_name, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			out.ID, username, norm, display, in.PasswordHash, now,
		)
		if err != nil {
			if field, ok := pgClassifyUniqueViolation(err); ok {
				return Admin{}, false, ConflictError{Op: op, Field: field}
			}
			return Admin{}, false, fmt.Errorf("%s: insert: %w", op, err)
		}
	case err != nil:
		return Admin{}, false, fmt.Errorf("%s: lookup: %w", op, err)
	default:
		out.LastLoginAt = lastLogin
		_, err = tx.Exec(ctx,
			`UPDATE `+table+` SET username = $2, display_name = $3, password_hash = $4, updated_at = $5 WHERE id = $1`,
			out.ID, username, display, in.PasswordHash, now,
		)
		if err != nil {
			return Admin{}, false, fmt.Errorf("%s: update: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Admin{}, false, fmt.Errorf("%s: commit: %w", op, err)
	}
	return out, created, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, e AuditEntry) error {
	const op = "identity.InsertAudit"

	action := strings.TrimSpace(e.Action)
	if action == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty action"}
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	var meta *string
	if len(e.Meta) > 0 {
		if b, err := json.Marshal(e.Meta); err == nil {
			m := string(b)
			meta = &m
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "admin_audit_log")+` (admin_id, action, created_at, ip, user_agent, meta)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		e.AdminID, action, at.UTC(), trimOrNil(e.IP), trimOrNil(e.UserAgent), meta,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}

// pgIdent quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	if strings.Contains(strings.ToLower(pgErr.ConstraintName), "username") {
		return "username", true
	}
	return "unique", true
}
