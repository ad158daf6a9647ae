package connection

import "github.com/tomyedwab/sqlserial/engine"

// Statement is a caller-owned handle to a prepared statement. The caller is
// responsible for closing it; the engine-side cursor is not garbage collected,
// though closing the connection finalizes any statements left behind.
//
// Every method routes through the connection's mailbox, so stepping one
// statement never interleaves with any other operation on the connection.
type Statement struct {
	conn  *Connection
	token *engine.Statement
}

// Step advances the cursor and returns the next row. Once the cursor is
// drained it returns engine.ErrExhausted on every call until Reset; lock
// contention is reported as engine.ErrBusy. Both are sentinels that pass
// through unwrapped so callers can test them with errors.Is.
func (s *Statement) Step() (engine.Row, error) {
	var row engine.Row
	var err error
	if cerr := s.conn.call(func() {
		row, err = s.token.Step()
	}); cerr != nil {
		return nil, cerr
	}
	return row, err
}

// Reset rewinds the cursor to the start, preserving bound parameters.
func (s *Statement) Reset() error {
	var err error
	if cerr := s.conn.call(func() {
		err = s.token.Reset()
	}); cerr != nil {
		return cerr
	}
	if err != nil {
		return NewEngineError("reset failed", err)
	}
	return nil
}

// Bind sets the parameter values for the statement's next execution.
func (s *Statement) Bind(params ...any) error {
	var err error
	if cerr := s.conn.call(func() {
		err = s.token.Bind(params...)
	}); cerr != nil {
		return cerr
	}
	if err != nil {
		return NewEngineError("bind failed", err)
	}
	return nil
}

// ColumnNames returns the statement's output column names, in declaration
// order. The tuple is computed once and stable across repeated calls.
func (s *Statement) ColumnNames() ([]string, error) {
	var columns []string
	var err error
	if cerr := s.conn.call(func() {
		columns, err = s.token.ColumnNames()
	}); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, NewEngineError("failed to get column names", err)
	}
	return columns, nil
}

// Close finalizes the statement. It is idempotent.
func (s *Statement) Close() error {
	var err error
	if cerr := s.conn.call(func() {
		err = s.token.Close()
	}); cerr != nil {
		return cerr
	}
	if err != nil {
		return NewEngineError("failed to close statement", err)
	}
	return nil
}
