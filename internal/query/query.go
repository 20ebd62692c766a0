package query

import (
	"context"
	"time"
)

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Executor runs one read-only statement and returns every row it produced.
type Executor interface {
	Execute(ctx context.Context, sql string) (Result, error)
}

// ExecutionError carries the database's own message for a failed query.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "query execution failed"
	}
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
