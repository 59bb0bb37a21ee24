package records

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_Defaults(t *testing.T) {
	q, err := ParseQuery(url.Values{}, Companies)
	require.NoError(t, err)
	assert.Equal(t, Query{Page: 1, PageSize: DefaultPageSize, SortOrder: SortDesc}, q)
}

func TestParseQuery_AllParams(t *testing.T) {
	v := url.Values{
		"page":      {"2"},
		"pageSize":  {"500"},
		"search":    {"  acme "},
		"sortBy":    {"score"},
		"sortOrder": {"ASC"},
		"status":    {"qualified, rejected,qualified"},
		"industry":  {"saas"},
		"name":      {"a,b"},
		"country":   {" , "},
		"unrelated": {"x"},
	}
	q, err := ParseQuery(v, Companies)
	require.NoError(t, err)

	assert.Equal(t, 2, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)
	assert.Equal(t, "acme", q.Search)
	assert.Equal(t, "score", q.SortBy)
	assert.Equal(t, SortAsc, q.SortOrder)
	assert.Equal(t, []FieldFilter{
		{Param: "country", Filter: NoFilter{}},
		{Param: "industry", Filter: Equals{Value: "saas"}},
		{Param: "name", Filter: Contains{Value: "a,b"}},
		{Param: "status", Filter: OneOf{Values: []string{"qualified", "rejected"}}},
	}, q.Filters)
}

func TestParseQuery_Invalid(t *testing.T) {
	cases := map[string]url.Values{
		"page text":      {"page": {"two"}},
		"page negative":  {"page": {"-1"}},
		"size zero":      {"pageSize": {"0"}},
		"sort unknown":   {"sortBy": {"id; DROP TABLE leads"}},
		"order unknown":  {"sortOrder": {"up"}},
		"page overflow":  {"page": {"999999999"}, "pageSize": {"100"}},
		"search too big": {"search": {string(make([]byte, maxSearchLen+1))}},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery(v, Leads)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}
