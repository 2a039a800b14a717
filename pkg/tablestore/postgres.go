package tablestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresTransport stores each logical table as a SQL table with a BIGSERIAL
// sequence column followed by TEXT columns.
type PostgresTransport struct {
	db     *sqlx.DB
	schema Schema
}

// NewPostgres wraps an existing connection.
func NewPostgres(db *sqlx.DB, schema Schema) *PostgresTransport {
	return &PostgresTransport{db: db, schema: schema}
}

// EnsureSchema creates any missing tables.
func (p *PostgresTransport) EnsureSchema(ctx context.Context) error {
	for _, t := range p.schema.Tables() {
		defs := make([]string, 0, len(t.Columns)+1)
		defs = append(defs, "seq BIGSERIAL PRIMARY KEY")
		for _, col := range t.Columns {
			defs = append(defs, fmt.Sprintf("%s TEXT NOT NULL DEFAULT ''", pq.QuoteIdentifier(col)))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(t.Name), strings.Join(defs, ", "))
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// ReadAll selects every row ordered by sequence.
func (p *PostgresTransport) ReadAll(ctx context.Context, table string) ([]Row, error) {
	cols, err := p.schema.Columns(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT seq, %s FROM %s ORDER BY seq ASC", quoteAll(cols), pq.QuoteIdentifier(table))
	rows, err := p.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var seq int64
		values := make([]sql.NullString, len(cols))
		dest := make([]interface{}, 0, len(cols)+1)
		dest = append(dest, &seq)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		mapped := make(map[string]string, len(cols))
		for i, col := range cols {
			mapped[col] = values[i].String
		}
		out = append(out, Row{Seq: seq, Values: mapped})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// AppendRow issues a single INSERT ... RETURNING seq.
func (p *PostgresTransport) AppendRow(ctx context.Context, table string, values []string) (int64, error) {
	cols, _, err := p.schema.bind(table, values)
	if err != nil {
		return 0, err
	}
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(values))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[i]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING seq",
		pq.QuoteIdentifier(table), quoteAll(cols), strings.Join(placeholders, ", "))

	var seq int64
	if err := p.db.QueryRowxContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("append %s: %w", table, err)
	}
	return seq, nil
}

func quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}
