package records

// Filter constrains one column. The concrete types are NoFilter, Equals,
// Contains and OneOf; QueryBuilder is the only interpreter.
type Filter interface {
	isFilter()
}

// NoFilter matches every row.
type NoFilter struct{}

// Equals matches the exact value.
type Equals struct{ Value string }

// Contains is a case-insensitive substring match.
type Contains struct{ Value string }

// OneOf matches any of Values.
type OneOf struct{ Values []string }

func (NoFilter) isFilter() {}
func (Equals) isFilter()   {}
func (Contains) isFilter() {}
func (OneOf) isFilter()    {}

// FieldFilter binds a Filter to a query parameter of a Resource.
type FieldFilter struct {
	Param  string
	Filter Filter
}
