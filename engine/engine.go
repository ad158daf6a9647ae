package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrExhausted reports that a statement cursor has no more rows. It is a
	// sentinel, not a failure; it repeats on every step until the statement is
	// reset.
	ErrExhausted = errors.New("statement exhausted")

	// ErrBusy reports that the engine could not step the cursor because the
	// database is locked by another handle. The statement remains valid and
	// the step may be retried by the caller.
	ErrBusy = errors.New("statement busy")
)

// Engine owns one open database handle and the statements prepared against it.
// It performs no locking of its own; the connection layer guarantees that only
// one request touches the engine at a time.
type Engine struct {
	db     *sqlx.DB
	stmts  map[string]*Statement
	closed bool
}

// Open connects to the database and pins the pool to a single underlying
// session. Transaction control is issued as plain SQL statements, so every
// request must land on the same session for the savepoint stack to be
// coherent.
func Open(driverName string, dataSourceName string) (*Engine, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Engine{
		db:    db,
		stmts: make(map[string]*Statement),
	}, nil
}

// Close finalizes every statement still registered and then closes the
// database handle. It is idempotent; the handle is released exactly once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	for id, stmt := range e.stmts {
		_ = stmt.Close()
		delete(e.stmts, id)
	}
	return e.db.Close()
}

// Exec runs a statement that returns no rows.
func (e *Engine) Exec(query string, params ...any) (Result, error) {
	res, err := e.db.Exec(query, params...)
	if err != nil {
		return Result{}, err
	}

	// Not every statement produces these; errors here mean "not applicable",
	// not failure.
	lastInsertID, _ := res.LastInsertId()
	rowsAffected, _ := res.RowsAffected()
	return Result{LastInsertID: lastInsertID, RowsAffected: rowsAffected}, nil
}

// Query runs a statement and returns all of its rows, shaped.
func (e *Engine) Query(query string, params ...any) ([]Row, error) {
	rows, err := e.db.Queryx(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var tuples [][]any
	for rows.Next() {
		tuple, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		tuples = append(tuples, tuple)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return Shape(columns, tuples), nil
}

// Prepare compiles a statement and registers it so Close can finalize any
// cursor the caller leaks.
func (e *Engine) Prepare(query string) (*Statement, error) {
	stmt, err := e.db.Preparex(query)
	if err != nil {
		return nil, err
	}
	s := &Statement{
		id:    uuid.NewString(),
		query: query,
		stmt:  stmt,
	}
	e.stmts[s.id] = s
	return s, nil
}

// asStepError translates engine lock contention into the busy sentinel and
// leaves every other error untouched.
func asStepError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return ErrBusy
		}
	}
	return err
}
