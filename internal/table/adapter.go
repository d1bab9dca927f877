package table

// Adapter is the narrow surface the upload pipeline needs from a tabular
// backend. Implementations exist for in-memory tables (CSV input) and SQLite
// databases; anything else can be plugged in by satisfying this interface.
type Adapter interface {
	// Columns returns the column names in table order.
	Columns() ([]string, error)
	// AddColumn appends a new column, filling existing rows with defaultValue.
	AddColumn(name string, defaultValue any) error
	// UniqueValues returns the distinct non-empty values of one column.
	UniqueValues(column string) ([]string, error)
	// Rows returns every row as a column-keyed map.
	Rows() ([]map[string]any, error)
}
