package tablestore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*PostgresTransport, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgres(sqlxDB, testSchema()), mock, func() { _ = sqlxDB.Close() }
}

func TestPostgresTransportAppendIsSingleInsert(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "events" ("class", "points") VALUES ($1, $2) RETURNING seq`)).
		WithArgs("10A1", "-2").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))

	seq, err := store.AppendRow(context.Background(), "events", []string{"10A1", "-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransportReadAll(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"seq", "class", "points"}).
		AddRow(1, "10A1", "-5").
		AddRow(2, "10A1", "3")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seq, "class", "points" FROM "events" ORDER BY seq ASC`)).
		WillReturnRows(rows)

	out, err := store.ReadAll(context.Background(), "events")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "3", out[1].Get("points"))
	assert.Equal(t, int64(2), out[1].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransportPropagatesFailure(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "plans"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.AppendRow(context.Background(), "plans", []string{"Week 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append plans")
}

func TestPostgresTransportEnsureSchema(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "events" (seq BIGSERIAL PRIMARY KEY, "class" TEXT NOT NULL DEFAULT '', "points" TEXT NOT NULL DEFAULT '')`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "plans"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
