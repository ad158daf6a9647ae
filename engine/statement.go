package engine

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrStatementClosed reports an operation against a statement that has already
// been finalized.
var ErrStatementClosed = errors.New("statement closed")

// Statement is a compiled query with an implicit cursor position. The cursor
// starts lazily: the first Step (or ColumnNames) after a prepare, bind or
// reset executes the statement with the currently bound parameters.
//
// The result set is materialized at execution time rather than held open as a
// live engine cursor. The handle pool is pinned to a single session so that
// transaction control addresses one session; a live cursor would keep that
// session checked out and stall every request behind it.
type Statement struct {
	id     string
	query  string
	stmt   *sqlx.Stmt
	params []any

	tuples  [][]any
	pos     int
	started bool
	columns []string
	closed  bool
}

// ID returns the registry key assigned to this statement at prepare time.
func (s *Statement) ID() string {
	return s.id
}

// start executes the statement with the bound parameters and captures the
// result set. Column names are captured once, on the first execution ever,
// and reused for the statement's lifetime.
func (s *Statement) start() error {
	if s.started {
		return nil
	}
	rows, err := s.stmt.Queryx(s.params...)
	if err != nil {
		return asStepError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	if s.columns == nil {
		s.columns = columns
	}

	var tuples [][]any
	for rows.Next() {
		tuple, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		tuples = append(tuples, tuple)
	}
	if err := rows.Err(); err != nil {
		return asStepError(err)
	}

	s.tuples = tuples
	s.pos = 0
	s.started = true
	return nil
}

// Step advances the cursor by one row. It returns the shaped row, or
// ErrExhausted once the cursor is drained (repeatedly, until Reset), or
// ErrBusy when the database is locked by another handle.
func (s *Statement) Step() (Row, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.tuples) {
		return nil, ErrExhausted
	}
	tuple := s.tuples[s.pos]
	s.pos++
	return ShapeOne(s.columns, tuple), nil
}

// Reset rewinds the cursor to the start, preserving bound parameters. The
// next Step re-executes the statement.
func (s *Statement) Reset() error {
	if s.closed {
		return ErrStatementClosed
	}
	s.started = false
	s.tuples = nil
	s.pos = 0
	return nil
}

// Bind sets the parameter values for the next execution. Any active cursor is
// discarded, matching the engine's own bind semantics.
func (s *Statement) Bind(params ...any) error {
	if err := s.Reset(); err != nil {
		return err
	}
	s.params = params
	return nil
}

// ColumnNames returns the statement's output column tuple. It is computed on
// the first execution and stable afterwards; calling it before any Step starts
// the cursor without consuming a row.
func (s *Statement) ColumnNames() ([]string, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	if s.columns != nil {
		return s.columns, nil
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s.columns, nil
}

// Close finalizes the statement. It is idempotent.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.tuples = nil
	return s.stmt.Close()
}
