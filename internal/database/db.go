package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/meterwatch/alert-server-go/internal/config"
)

// DBTX is an interface that both *sqlx.DB and *sqlx.Tx satisfy.
// This allows repositories to work with either a direct connection or a transaction.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Queryer is a DBTX that also knows its bind style.
type Queryer interface {
	DBTX
	Rebind(query string) string
	DriverName() string
}

// Ensure *sqlx.DB and *sqlx.Tx implement Queryer
var _ Queryer = (*sqlx.DB)(nil)
var _ Queryer = (*sqlx.Tx)(nil)

type DB struct {
	*sqlx.DB
	queryTimeout time.Duration
}

// Connect opens a bounded pool. Dead connections are discarded by database/sql
// on checkout and redialled, so the pool never hands out a broken connection twice.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == "mysql" {
		var err error
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	idle := config.DBMaxIdleConns
	if cfg.PoolSize < idle {
		idle = cfg.PoolSize
	}
	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	db.SetConnMaxIdleTime(config.DBConnMaxIdleTime)

	return &DB{DB: db, queryTimeout: cfg.QueryTimeout()}, nil
}

// normalizeMySQLDSN forces parseTime and utf8mb4 so DATETIME columns scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	mcfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mcfg.ParseTime = true
	mcfg.Loc = time.Local
	if mcfg.Params == nil {
		mcfg.Params = map[string]string{}
	}
	if _, ok := mcfg.Params["charset"]; !ok {
		mcfg.Params["charset"] = "utf8mb4"
	}
	return mcfg.FormatDSN(), nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Conn returns the pool bounded by the configured per-statement timeout.
func (db *DB) Conn() Queryer {
	return WithQueryTimeout(db.DB, db.queryTimeout)
}

// TxFunc is a function that runs within a transaction.
type TxFunc func(tx *sqlx.Tx) error

// WithTx executes fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (db *DB) WithTx(ctx context.Context, fn TxFunc) error {
	return RunInTx(ctx, db.DB, fn)
}

// RunInTx is WithTx for a bare *sqlx.DB.
func RunInTx(ctx context.Context, db *sqlx.DB, fn TxFunc) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type timedQueryer struct {
	Queryer
	timeout time.Duration
}

// WithQueryTimeout bounds every statement issued through q, including the wait
// for a free pooled connection.
func WithQueryTimeout(q Queryer, timeout time.Duration) Queryer {
	if timeout <= 0 {
		return q
	}
	return &timedQueryer{Queryer: q, timeout: timeout}
}

func (t *timedQueryer) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Queryer.GetContext(ctx, dest, query, args...)
}

func (t *timedQueryer) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Queryer.SelectContext(ctx, dest, query, args...)
}

func (t *timedQueryer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Queryer.ExecContext(ctx, query, args...)
}
