// Package sqldb executes queries through database/sql. PostgreSQL via pgx is
// the default driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askdb/askdb/internal/query"
)

const DefaultDriver = "pgx"

type OpenFunc func(driverName, dsn string) (*sql.DB, error)

type Config struct {
	Driver       string
	DSN          string
	QueryTimeout time.Duration
}

// Executor opens a fresh single-connection handle for every statement and
// closes it before returning.
type Executor struct {
	driver  string
	dsn     string
	timeout time.Duration
	open    OpenFunc
}

func New(cfg Config) (*Executor, error) {
	return NewWithOpener(cfg, sql.Open)
}

func NewWithOpener(cfg Config, open OpenFunc) (*Executor, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if open == nil {
		return nil, fmt.Errorf("open func is required")
	}
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = DefaultDriver
	}
	return &Executor{driver: driver, dsn: cfg.DSN, timeout: cfg.QueryTimeout, open: open}, nil
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	start := time.Now()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	db, err := e.openHandle()
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	defer func() { _ = db.Close() }()

	// The transaction is never committed; the database refuses writes in it.
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, resultRows, err := query.CollectRows(rows)
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// HealthCheck opens a handle and pings the database.
func (e *Executor) HealthCheck(ctx context.Context) error {
	db, err := e.openHandle()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping %s database: %w", e.driver, err)
	}
	return nil
}

func (e *Executor) openHandle() (*sql.DB, error) {
	db, err := e.open(e.driver, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", e.driver, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
