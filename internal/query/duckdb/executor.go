// Package duckdb executes queries in an embedded DuckDB database. Tables
// whose metadata names a parquet source are exposed as temporary views over
// local copies of the objects.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/askdb/askdb/internal/metadata"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/storage"
)

type TableSource struct {
	TableName  string
	ObjectPath string
}

type Config struct {
	// Path is the database file; empty means an in-memory database.
	Path         string
	Sources      []TableSource
	QueryTimeout time.Duration
}

type Executor struct {
	store   storage.ObjectStore
	path    string
	sources []TableSource
	timeout time.Duration
}

func New(cfg Config, store storage.ObjectStore) (*Executor, error) {
	if len(cfg.Sources) > 0 && store == nil {
		return nil, fmt.Errorf("object store is required for parquet table sources")
	}
	for _, source := range cfg.Sources {
		if strings.TrimSpace(source.TableName) == "" {
			return nil, fmt.Errorf("table source %q has no table name", source.ObjectPath)
		}
	}
	return &Executor{
		store:   store,
		path:    strings.TrimSpace(cfg.Path),
		sources: cfg.Sources,
		timeout: cfg.QueryTimeout,
	}, nil
}

// SourcesFromMetadata returns a view source for every named table that
// declares one.
func SourcesFromMetadata(tables []metadata.TableDescriptor) []TableSource {
	sources := make([]TableSource, 0)
	for _, table := range tables {
		if table.Name == "" || strings.TrimSpace(table.Source) == "" {
			continue
		}
		sources = append(sources, TableSource{TableName: table.Name, ObjectPath: strings.TrimSpace(table.Source)})
	}
	return sources
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	start := time.Now()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	fail := func(err error) (query.Result, error) {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}

	statement := query.StripTrailingSemicolons(sqlText)
	if statement == "" {
		return fail(fmt.Errorf("sql is required"))
	}

	db, err := e.openHandle()
	if err != nil {
		return fail(err)
	}
	defer func() { _ = db.Close() }()

	workDir := ""
	if len(e.sources) > 0 {
		workDir, err = os.MkdirTemp("", "askdb-query-")
		if err != nil {
			return fail(fmt.Errorf("create query temp dir: %w", err))
		}
		defer func() { _ = os.RemoveAll(workDir) }()
		if resolved, err := filepath.EvalSymlinks(workDir); err == nil {
			workDir = resolved
		}

		if err := e.createViews(ctx, db, workDir); err != nil {
			return fail(err)
		}
	}
	if err := restrictAccess(ctx, db, workDir); err != nil {
		return fail(err)
	}

	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = rows.Close() }()

	columns, resultRows, err := query.CollectRows(rows)
	if err != nil {
		return fail(err)
	}
	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// HealthCheck opens the database and checks every parquet source exists.
func (e *Executor) HealthCheck(ctx context.Context) error {
	db, err := e.openHandle()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	for _, source := range e.sources {
		if _, err := e.store.Stat(ctx, source.ObjectPath); err != nil {
			return fmt.Errorf("stat source for table %q: %w", source.TableName, err)
		}
	}
	return nil
}

func (e *Executor) openHandle() (*sql.DB, error) {
	dsn := ""
	if e.path != "" {
		dsn = e.path + "?access_mode=READ_ONLY"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Temporary views live on a single connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (e *Executor) createViews(ctx context.Context, db *sql.DB, workDir string) error {
	groupedPaths := map[string][]string{}
	order := make([]string, 0, len(e.sources))
	for index, source := range e.sources {
		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(source.TableName), index))
		if err := downloadObject(ctx, e.store, source.ObjectPath, localPath); err != nil {
			return err
		}
		if _, seen := groupedPaths[source.TableName]; !seen {
			order = append(order, source.TableName)
		}
		groupedPaths[source.TableName] = append(groupedPaths[source.TableName], localPath)
	}

	for _, tableName := range order {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE TEMP VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(tableName), quoteStringArray(groupedPaths[tableName]))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}
	return nil
}

// restrictAccess stops the statement from touching the file system. Only
// workDir, which holds the downloaded parquet sources, stays readable, and
// the settings cannot be changed back on this connection.
func restrictAccess(ctx context.Context, db *sql.DB, workDir string) error {
	statements := make([]string, 0, 3)
	if workDir != "" {
		statements = append(statements, "SET allowed_directories = "+quoteStringArray([]string{workDir + string(filepath.Separator)}))
	}
	statements = append(statements,
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	)
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("restrict duckdb file access: %w", err)
		}
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
