package export

// Dataset is the tabular content handed to the renderers. Columns define
// the header order; every row must have the same arity.
type Dataset struct {
	Columns []string
	Rows    [][]string
}
