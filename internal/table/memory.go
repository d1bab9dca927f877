package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"labelsheet/internal/services"
)

// Memory is an in-memory Adapter. Not safe for concurrent mutation.
type Memory struct {
	columns []string
	index   map[string]struct{}
	rows    []map[string]any
}

// NewMemory builds an empty table with the given columns.
func NewMemory(columns ...string) (*Memory, error) {
	m := &Memory{index: make(map[string]struct{}, len(columns))}
	for _, column := range columns {
		if err := m.AddColumn(column, nil); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadCSV reads a CSV file with a header row into a Memory table. Every cell
// is kept as a string; typed interpretation happens downstream.
func LoadCSV(path string) (*Memory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "table", "load", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "table", "load", path, err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "table", "load",
			fmt.Sprintf("%s has no header row", path), nil)
	}

	m, err := NewMemory(records[0]...)
	if err != nil {
		return nil, err
	}
	for _, record := range records[1:] {
		row := make(map[string]any, len(records[0]))
		for i, column := range records[0] {
			if i < len(record) {
				row[column] = record[i]
			} else {
				row[column] = ""
			}
		}
		if err := m.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WriteCSV writes an adapter as CSV with a header row, the inverse of
// LoadCSV. Non-string cells are rendered the way terminal output renders
// them.
func WriteCSV(w io.Writer, adapter Adapter) error {
	columns, err := adapter.Columns()
	if err != nil {
		return err
	}
	rows, err := adapter.Rows()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return services.Wrap(services.ErrValidation, "table", "write", "write CSV header", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			if value := row[column]; value != nil {
				record[i] = toCell(value)
			}
		}
		if err := writer.Write(record); err != nil {
			return services.Wrap(services.ErrValidation, "table", "write", "write CSV row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return services.Wrap(services.ErrValidation, "table", "write", "flush CSV", err)
	}
	return nil
}

// AppendRow adds one row. Keys outside the declared columns are rejected.
func (m *Memory) AppendRow(row map[string]any) error {
	for key := range row {
		if _, ok := m.index[key]; !ok {
			return services.Wrap(services.ErrValidation, "table", "append",
				fmt.Sprintf("unknown column %q", key), nil)
		}
	}
	copied := make(map[string]any, len(row))
	for key, value := range row {
		copied[key] = value
	}
	m.rows = append(m.rows, copied)
	return nil
}

// Len reports the number of rows.
func (m *Memory) Len() int { return len(m.rows) }

// Columns implements Adapter.
func (m *Memory) Columns() ([]string, error) {
	columns := make([]string, len(m.columns))
	copy(columns, m.columns)
	return columns, nil
}

// AddColumn implements Adapter.
func (m *Memory) AddColumn(name string, defaultValue any) error {
	if name == "" {
		return services.Wrap(services.ErrValidation, "table", "add-column", "empty column name", nil)
	}
	if _, exists := m.index[name]; exists {
		return services.Wrap(services.ErrValidation, "table", "add-column",
			fmt.Sprintf("column %q already exists", name), nil)
	}
	m.columns = append(m.columns, name)
	m.index[name] = struct{}{}
	for _, row := range m.rows {
		row[name] = defaultValue
	}
	return nil
}

// UniqueValues implements Adapter. Values keep first-seen order.
func (m *Memory) UniqueValues(column string) ([]string, error) {
	if _, ok := m.index[column]; !ok {
		return nil, services.Wrap(services.ErrValidation, "table", "unique-values",
			fmt.Sprintf("unknown column %q", column), nil)
	}
	seen := make(map[string]struct{})
	var values []string
	for _, row := range m.rows {
		value := row[column]
		if value == nil {
			continue
		}
		text := fmt.Sprint(value)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		values = append(values, text)
	}
	return values, nil
}

// Rows implements Adapter. Row maps are copies.
func (m *Memory) Rows() ([]map[string]any, error) {
	rows := make([]map[string]any, len(m.rows))
	for i, row := range m.rows {
		copied := make(map[string]any, len(row))
		for key, value := range row {
			copied[key] = value
		}
		rows[i] = copied
	}
	return rows, nil
}
