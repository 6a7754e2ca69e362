package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "mysql"), mock
}

func TestRunInTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE device").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := RunInTx(context.Background(), db, func(tx *sqlx.Tx) error {
			_, err := tx.Exec("UPDATE device SET status = 1")
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := RunInTx(context.Background(), db, func(tx *sqlx.Tx) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = RunInTx(context.Background(), db, func(tx *sqlx.Tx) error {
				panic("unexpected")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithQueryTimeout(t *testing.T) {
	t.Run("zero timeout returns the queryer unchanged", func(t *testing.T) {
		db, _ := newMockDB(t)
		assert.Same(t, db, WithQueryTimeout(db, 0))
	})

	t.Run("statements run under a deadline", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM data").
			WillDelayFor(200 * time.Millisecond).
			WillReturnResult(sqlmock.NewResult(0, 0))

		q := WithQueryTimeout(db, 20*time.Millisecond)
		_, err := q.ExecContext(context.Background(), "DELETE FROM data")
		assert.Error(t, err)
	})

	t.Run("keeps the driver name and rebinding", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		q := WithQueryTimeout(sqlx.NewDb(mockDB, "postgres"), time.Second)
		assert.Equal(t, "postgres", q.DriverName())
		assert.Equal(t, "SELECT $1, $2", q.Rebind("SELECT ?, ?"))
	})
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("user:pass@tcp(localhost:3306)/meter")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	_, err = normalizeMySQLDSN("not a dsn")
	assert.Error(t, err)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "RAND()", RandomFunc("mysql"))
	assert.Equal(t, "RANDOM()", RandomFunc("postgres"))

	mysqlSQL := Upsert("mysql", "device", "id", []string{"id", "addr"}, []string{"addr"})
	assert.Equal(t, "INSERT INTO device (id, addr) VALUES (?, ?) ON DUPLICATE KEY UPDATE addr = VALUES(addr)", mysqlSQL)

	pgSQL := Upsert("postgres", "device", "id", []string{"id", "addr"}, []string{"addr"})
	assert.Equal(t, "INSERT INTO device (id, addr) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET addr = EXCLUDED.addr", pgSQL)
}
