package records

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxSearchLen    = 200
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterKind decides how a filter parameter is parsed.
type FilterKind int

const (
	// FilterExact parses "a" as Equals and "a,b" as OneOf.
	FilterExact FilterKind = iota
	// FilterText parses the value as Contains.
	FilterText
)

// FilterField maps a query parameter onto a column.
type FilterField struct {
	Column string
	Kind   FilterKind
}

// Resource describes one listable table. Every column named here is a
// trusted constant; user input only ever selects among them.
type Resource struct {
	Table       string
	Columns     []string
	Search      []string
	Filters     map[string]FilterField
	Sorts       map[string]string
	DefaultSort string
}

// Query is a parsed list request.
type Query struct {
	Search    string
	Filters   []FieldFilter
	SortBy    string
	SortOrder SortOrder
	Page      int
	PageSize  int
}

func (q Query) offset() int { return (q.Page - 1) * q.PageSize }

// Statement is SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// QueryBuilder turns a Query into parameterized SQL for one Resource.
type QueryBuilder struct {
	res   Resource
	table string
}

func NewQueryBuilder(schema string, res Resource) *QueryBuilder {
	table := pgx.Identifier{res.Table}
	if schema != "" {
		table = pgx.Identifier{schema, res.Table}
	}
	return &QueryBuilder{res: res, table: table.Sanitize()}
}

// Build returns the page query and the matching count query.
func (b *QueryBuilder) Build(q Query) (list Statement, count Statement, err error) {
	if q.Page < 1 || q.PageSize < 1 || q.PageSize > MaxPageSize {
		return Statement{}, Statement{}, invalidQuery("page %d size %d", q.Page, q.PageSize)
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = b.res.DefaultSort
	}
	sortCol, ok := b.res.Sorts[sortBy]
	if !ok {
		return Statement{}, Statement{}, invalidQuery("unknown sortBy %q", q.SortBy)
	}
	dir := "DESC"
	switch q.SortOrder {
	case SortAsc:
		dir = "ASC"
	case SortDesc, "":
	default:
		return Statement{}, Statement{}, invalidQuery("unknown sortOrder %q", q.SortOrder)
	}

	where, args, err := b.where(q)
	if err != nil {
		return Statement{}, Statement{}, err
	}

	count = Statement{
		SQL:  "SELECT count(*) FROM " + b.table + where,
		Args: append([]any(nil), args...),
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.res.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(sortCol)
	sb.WriteString(" ")
	sb.WriteString(dir)
	if sortCol != "id" {
		sb.WriteString(", id ASC")
	}
	args = append(args, q.PageSize, q.offset())
	sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)-1))
	sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	return Statement{SQL: sb.String(), Args: args}, count, nil
}

func (b *QueryBuilder) where(q Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if s := strings.TrimSpace(q.Search); s != "" && len(b.res.Search) > 0 {
		ph := next(likePattern(s))
		parts := make([]string, 0, len(b.res.Search))
		for _, col := range b.res.Search {
			parts = append(parts, col+" ILIKE "+ph+` ESCAPE '\'`)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	for _, ff := range q.Filters {
		field, ok := b.res.Filters[ff.Param]
		if !ok {
			return "", nil, invalidQuery("unknown filter %q", ff.Param)
		}
		switch f := ff.Filter.(type) {
		case nil, NoFilter:
		case Equals:
			conds = append(conds, field.Column+" = "+next(f.Value))
		case Contains:
			conds = append(conds, field.Column+" ILIKE "+next(likePattern(f.Value))+` ESCAPE '\'`)
		case OneOf:
			if len(f.Values) == 0 {
				continue
			}
			phs := make([]string, len(f.Values))
			for i, v := range f.Values {
				phs[i] = next(v)
			}
			conds = append(conds, field.Column+" IN ("+strings.Join(phs, ", ")+")")
		default:
			return "", nil, invalidQuery("unsupported filter %T", ff.Filter)
		}
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
