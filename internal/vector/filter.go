package vector

// FilterKind discriminates the filter tree node types.
type FilterKind int

const (
	FilterEq FilterKind = iota
	FilterIn
	FilterAnd
	FilterOr
)

// Filter is a backend-agnostic metadata predicate. Leaf nodes (Eq, In)
// compare a payload key; And/Or combine sub-filters.
type Filter struct {
	Kind   FilterKind
	Key    string
	Value  any
	Values []any
	Subs   []*Filter
}

// Eq matches points whose payload key equals value.
func Eq(key string, value any) *Filter {
	return &Filter{Kind: FilterEq, Key: key, Value: value}
}

// In matches points whose payload key equals any of the given values.
func In(key string, values ...any) *Filter {
	return &Filter{Kind: FilterIn, Key: key, Values: values}
}

// And matches points satisfying every sub-filter.
func And(subs ...*Filter) *Filter {
	return &Filter{Kind: FilterAnd, Subs: subs}
}

// Or matches points satisfying at least one sub-filter.
func Or(subs ...*Filter) *Filter {
	return &Filter{Kind: FilterOr, Subs: subs}
}
