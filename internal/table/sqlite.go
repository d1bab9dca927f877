package table

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"labelsheet/internal/services"
)

// SQLite adapts one table of a SQLite database.
type SQLite struct {
	db   *sql.DB
	name string
}

// OpenSQLite opens path and binds the adapter to tableName, which must
// already exist.
func OpenSQLite(path, tableName string) (*SQLite, error) {
	if tableName == "" {
		return nil, services.Wrap(services.ErrConfiguration, "table", "open", "empty table name", nil)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "table", "open", path, err)
	}

	var found string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName).Scan(&found)
	if err == sql.ErrNoRows {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "table", "open",
			fmt.Sprintf("no table named %q in %s", tableName, path), nil)
	}
	if err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "table", "open", path, err)
	}
	return &SQLite{db: db, name: tableName}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Columns implements Adapter.
func (s *SQLite) Columns() ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(s.name)))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "table", "columns", s.name, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name       string
			columnType string
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultVal, &primaryKey); err != nil {
			return nil, services.Wrap(services.ErrTransient, "table", "columns", s.name, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// AddColumn implements Adapter. New columns are TEXT; the default value is
// applied to existing rows.
func (s *SQLite) AddColumn(name string, defaultValue any) error {
	if name == "" {
		return services.Wrap(services.ErrValidation, "table", "add-column", "empty column name", nil)
	}
	existing, err := s.Columns()
	if err != nil {
		return err
	}
	for _, column := range existing {
		if column == name {
			return services.Wrap(services.ErrValidation, "table", "add-column",
				fmt.Sprintf("column %q already exists", name), nil)
		}
	}
	_, err = s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TEXT`, quoteIdent(s.name), quoteIdent(name)))
	if err != nil {
		return services.Wrap(services.ErrTransient, "table", "add-column", name, err)
	}
	if defaultValue != nil {
		_, err = s.db.Exec(fmt.Sprintf(`UPDATE %s SET %s = ?`, quoteIdent(s.name), quoteIdent(name)), fmt.Sprint(defaultValue))
		if err != nil {
			return services.Wrap(services.ErrTransient, "table", "add-column", name, err)
		}
	}
	return nil
}

// UniqueValues implements Adapter.
func (s *SQLite) UniqueValues(column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s != ''`,
		quoteIdent(column), quoteIdent(s.name), quoteIdent(column), quoteIdent(column))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "table", "unique-values", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, services.Wrap(services.ErrTransient, "table", "unique-values", column, err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Rows implements Adapter.
func (s *SQLite) Rows() ([]map[string]any, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(s.name)))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "table", "rows", s.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "table", "rows", s.name, err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, services.Wrap(services.ErrTransient, "table", "rows", s.name, err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if blob, ok := values[i].([]byte); ok {
				row[column] = string(blob)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
