package tablestore

import (
	"context"
	"sync"
)

// MemoryTransport keeps tables in process memory. It is safe for concurrent use.
type MemoryTransport struct {
	schema Schema

	mu     sync.RWMutex
	tables map[string][]Row
	seq    map[string]int64
}

// NewMemory constructs an empty in-memory transport for the schema.
func NewMemory(schema Schema) *MemoryTransport {
	m := &MemoryTransport{
		schema: schema,
		tables: make(map[string][]Row),
		seq:    make(map[string]int64),
	}
	for _, t := range schema.Tables() {
		m.tables[t.Name] = nil
	}
	return m
}

// ReadAll returns a snapshot of the table.
func (m *MemoryTransport) ReadAll(ctx context.Context, table string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.schema.Columns(table); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.tables[table]
	out := make([]Row, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		out[i] = Row{Seq: row.Seq, Values: values}
	}
	return out, nil
}

// AppendRow stores the row under the table lock.
func (m *MemoryTransport) AppendRow(ctx context.Context, table string, values []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	_, mapped, err := m.schema.bind(table, values)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[table]++
	seq := m.seq[table]
	m.tables[table] = append(m.tables[table], Row{Seq: seq, Values: mapped})
	return seq, nil
}
