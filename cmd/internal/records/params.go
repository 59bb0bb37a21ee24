package records

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ParseQuery reads page, pageSize, search, sortBy, sortOrder and the
// resource's filter parameters. Unknown parameters are ignored. pageSize
// above MaxPageSize is clamped.
func ParseQuery(v url.Values, res Resource) (Query, error) {
	q := Query{Page: 1, PageSize: DefaultPageSize, SortOrder: SortDesc}

	if s := strings.TrimSpace(v.Get("page")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, invalidQuery("page must be a positive integer")
		}
		q.Page = n
	}
	if s := strings.TrimSpace(v.Get("pageSize")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, invalidQuery("pageSize must be a positive integer")
		}
		q.PageSize = min(n, MaxPageSize)
	}
	// Overflowing offsets are rejected rather than wrapped.
	if q.Page > (1<<31-1)/q.PageSize {
		return Query{}, invalidQuery("page out of range")
	}

	q.Search = strings.TrimSpace(v.Get("search"))
	if len(q.Search) > maxSearchLen {
		return Query{}, invalidQuery("search longer than %d bytes", maxSearchLen)
	}

	if s := strings.TrimSpace(v.Get("sortBy")); s != "" {
		if _, ok := res.Sorts[s]; !ok {
			return Query{}, invalidQuery("unknown sortBy %q", s)
		}
		q.SortBy = s
	}
	switch s := strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))); s {
	case "":
	case string(SortAsc), string(SortDesc):
		q.SortOrder = SortOrder(s)
	default:
		return Query{}, invalidQuery("sortOrder must be asc or desc")
	}

	for _, param := range slices.Sorted(maps.Keys(res.Filters)) {
		raw := strings.TrimSpace(v.Get(param))
		if raw == "" {
			continue
		}
		q.Filters = append(q.Filters, FieldFilter{Param: param, Filter: parseFilter(raw, res.Filters[param].Kind)})
	}
	return q, nil
}

func parseFilter(raw string, kind FilterKind) Filter {
	if kind == FilterText {
		return Contains{Value: raw}
	}
	var vals []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(vals, p) {
			vals = append(vals, p)
		}
	}
	switch len(vals) {
	case 0:
		return NoFilter{}
	case 1:
		return Equals{Value: vals[0]}
	default:
		return OneOf{Values: vals}
	}
}
