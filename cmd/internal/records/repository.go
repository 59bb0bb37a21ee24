package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultSchema holds the records tables.
const DefaultSchema = "leadadmin"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository reads companies and leads.
type Repository interface {
	ListCompanies(ctx context.Context, q Query) (Page[Company], error)
	GetCompany(ctx context.Context, id string) (CompanyDetail, error)
	ListLeads(ctx context.Context, q Query) (Page[Lead], error)
	Totals(ctx context.Context) (Totals, error)
}

type PostgresRepository struct {
	db        DBTX
	schema    string
	companies *QueryBuilder
	leads     *QueryBuilder
}

func NewPostgresRepository(db DBTX, schema string) *PostgresRepository {
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostgresRepository{
		db:        db,
		schema:    schema,
		companies: NewQueryBuilder(schema, Companies),
		leads:     NewQueryBuilder(schema, Leads),
	}
}

func (r *PostgresRepository) ListCompanies(ctx context.Context, q Query) (Page[Company], error) {
	const op = "records.ListCompanies"
	list, count, err := r.companies.Build(q)
	if err != nil {
		return Page[Company]{}, err
	}
	total, err := r.count(ctx, op, count)
	if err != nil {
		return Page[Company]{}, err
	}

	rows, err := r.db.QueryContext(ctx, list.SQL, list.Args...)
	if err != nil {
		return Page[Company]{}, unavailable(op, err)
	}
	defer rows.Close()

	var items []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return Page[Company]{}, unavailable(op, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Page[Company]{}, unavailable(op, err)
	}
	return newPage(items, total, q), nil
}

func (r *PostgresRepository) GetCompany(ctx context.Context, id string) (CompanyDetail, error) {
	const op = "records.GetCompany"
	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.industry, c.country, c.website, c.status, c.score, c.evaluated_at, c.created_at,
		       (SELECT count(*) FROM %s l WHERE l.company_id = c.id)
		FROM %s c
		WHERE c.id = $1`, r.table("leads"), r.table("companies"))

	var (
		d  CompanyDetail
		ev sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Industry, &d.Country, &d.Website, &d.Status, &d.Score, &ev, &d.CreatedAt,
		&d.LeadCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CompanyDetail{}, OpError{Op: op, Kind: ErrNotFound, Msg: "company"}
	}
	if err != nil {
		return CompanyDetail{}, unavailable(op, err)
	}
	d.EvaluatedAt = nullTime(ev)
	return d, nil
}

func (r *PostgresRepository) ListLeads(ctx context.Context, q Query) (Page[Lead], error) {
	const op = "records.ListLeads"
	list, count, err := r.leads.Build(q)
	if err != nil {
		return Page[Lead]{}, err
	}
	total, err := r.count(ctx, op, count)
	if err != nil {
		return Page[Lead]{}, err
	}

	rows, err := r.db.QueryContext(ctx, list.SQL, list.Args...)
	if err != nil {
		return Page[Lead]{}, unavailable(op, err)
	}
	defer rows.Close()

	var items []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.ContactName, &l.Email, &l.Phone, &l.Source, &l.Status, &l.ValueCents, &l.CreatedAt); err != nil {
			return Page[Lead]{}, unavailable(op, err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return Page[Lead]{}, unavailable(op, err)
	}
	return newPage(items, total, q), nil
}

func (r *PostgresRepository) Totals(ctx context.Context) (Totals, error) {
	const op = "records.Totals"
	t := Totals{LeadsByStatus: map[string]int64{}}

	query := fmt.Sprintf(`SELECT (SELECT count(*) FROM %s), (SELECT count(*) FROM %s)`,
		r.table("companies"), r.table("leads"))
	if err := r.db.QueryRowContext(ctx, query).Scan(&t.Companies, &t.Leads); err != nil {
		return Totals{}, unavailable(op, err)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT status, count(*) FROM %s GROUP BY status`, r.table("leads")))
	if err != nil {
		return Totals{}, unavailable(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Totals{}, unavailable(op, err)
		}
		t.LeadsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return Totals{}, unavailable(op, err)
	}
	return t, nil
}

func (r *PostgresRepository) count(ctx context.Context, op string, st Statement) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return 0, unavailable(op, err)
	}
	return n, nil
}

func (r *PostgresRepository) table(name string) string {
	return pgx.Identifier{r.schema, name}.Sanitize()
}

func scanCompany(rows *sql.Rows) (Company, error) {
	var (
		c  Company
		ev sql.NullTime
	)
	err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.Country, &c.Website, &c.Status, &c.Score, &ev, &c.CreatedAt)
	c.EvaluatedAt = nullTime(ev)
	return c, err
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func unavailable(op string, err error) error {
	return OpError{Op: op, Kind: ErrUnavailable, Err: err}
}
