// Package tablestore provides append-only, full-read table transports that back
// the catalog, conduct ledger and plan log. Every backend stores positional
// string values against a declared column list and assigns a monotonically
// increasing sequence to each appended row.
package tablestore

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownTable is returned when a table is not declared in the schema.
var ErrUnknownTable = errors.New("unknown table")

// Transport is the narrow storage contract used by repositories.
type Transport interface {
	// ReadAll returns every row of the table ordered by sequence.
	ReadAll(ctx context.Context, table string) ([]Row, error)
	// AppendRow atomically adds one row and returns its sequence.
	AppendRow(ctx context.Context, table string, values []string) (int64, error)
}

// Row is a single stored record keyed by column name.
type Row struct {
	Seq    int64
	Values map[string]string
}

// Get returns the value stored under column, or an empty string.
func (r Row) Get(column string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[column]
}

// Table declares a logical table and its ordered columns.
type Table struct {
	Name    string
	Columns []string
}

// Schema is the set of tables a transport accepts.
type Schema struct {
	tables []Table
	index  map[string]int
}

// NewSchema builds a schema from the given table declarations.
func NewSchema(tables ...Table) Schema {
	s := Schema{tables: make([]Table, 0, len(tables)), index: make(map[string]int, len(tables))}
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		copy(cols, t.Columns)
		s.index[t.Name] = len(s.tables)
		s.tables = append(s.tables, Table{Name: t.Name, Columns: cols})
	}
	return s
}

// Tables returns the declared tables in declaration order.
func (s Schema) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Columns returns the ordered columns of a table.
func (s Schema) Columns(table string) ([]string, error) {
	idx, ok := s.index[table]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, table)
	}
	return s.tables[idx].Columns, nil
}

// bind pairs positional values with the table's columns.
func (s Schema) bind(table string, values []string) ([]string, map[string]string, error) {
	cols, err := s.Columns(table)
	if err != nil {
		return nil, nil, err
	}
	if len(values) != len(cols) {
		return nil, nil, fmt.Errorf("table %q expects %d values, got %d", table, len(cols), len(values))
	}
	mapped := make(map[string]string, len(cols))
	for i, col := range cols {
		mapped[col] = values[i]
	}
	return cols, mapped, nil
}
