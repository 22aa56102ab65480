package snps

// DefaultMinQual is the default minimum call quality.
const DefaultMinQual = 20

// Filter is a call quality threshold.
type Filter struct {
	MinQual float64
	Enabled bool
}

// DefaultFilter keeps calls with quality >= DefaultMinQual.
func DefaultFilter() Filter {
	return Filter{MinQual: DefaultMinQual, Enabled: true}
}

// NoFilter keeps every call.
func NoFilter() Filter {
	return Filter{}
}

// Keep reports whether a call with quality qual passes the filter.
func (f Filter) Keep(qual float64) bool {
	return !f.Enabled || qual >= f.MinQual
}
