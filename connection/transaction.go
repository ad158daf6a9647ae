package connection

import "fmt"

// Nested transactions are layered over the engine's single transaction level
// plus savepoints, addressed by the nesting counter alone. A begin at level n
// creates savepoint S<n>; the matching commit or rollback at level n+1
// addresses S<n> by recomputing the name from the counter. No separate name
// stack exists, so the off-by-one between "level before begin" and "level
// before commit" is load-bearing: the savepoint released at level n is the one
// created when the level was n-1.

// savepointName derives the synthetic savepoint name for a begin issued at the
// given nesting level.
func savepointName(level int) string {
	return fmt.Sprintf("S%d", level)
}

// Begin opens a transaction. At level 0 it opens the engine's top-level
// transaction; at any higher level it creates a savepoint, so begins nest to
// arbitrary depth.
func (c *Connection) Begin() error {
	var err error
	if cerr := c.call(func() { err = c.begin() }); cerr != nil {
		return cerr
	}
	return err
}

// Commit commits the innermost open transaction. At level 1 it commits the
// engine's top-level transaction; at higher levels it releases the matching
// savepoint. Committing with no open transaction returns ErrNoTransaction.
func (c *Connection) Commit() error {
	var err error
	if cerr := c.call(func() { err = c.commit() }); cerr != nil {
		return cerr
	}
	return err
}

// Rollback rolls back the innermost open transaction. At level 1 it rolls
// back the engine's top-level transaction; at higher levels it rolls back to
// the matching savepoint, leaving the enclosing transaction open. Rolling back
// with no open transaction returns ErrNoTransaction.
func (c *Connection) Rollback() error {
	var err error
	if cerr := c.call(func() { err = c.rollback() }); cerr != nil {
		return cerr
	}
	return err
}

// begin, commit and rollback run on the mailbox goroutine and are the only
// writers of c.level.

func (c *Connection) begin() error {
	if c.level == 0 {
		if _, err := c.eng.Exec("BEGIN TRANSACTION"); err != nil {
			return NewEngineError("begin failed", err)
		}
		c.level = 1
		return nil
	}
	name := savepointName(c.level)
	if _, err := c.eng.Exec("SAVEPOINT " + name); err != nil {
		return NewEngineError("savepoint "+name+" failed", err)
	}
	c.level++
	return nil
}

func (c *Connection) commit() error {
	switch {
	case c.level == 0:
		return ErrNoTransaction
	case c.level == 1:
		if _, err := c.eng.Exec("COMMIT"); err != nil {
			return NewEngineError("commit failed", err)
		}
	default:
		name := savepointName(c.level - 1)
		if _, err := c.eng.Exec("RELEASE SAVEPOINT " + name); err != nil {
			return NewEngineError("release savepoint "+name+" failed", err)
		}
	}
	c.level--
	return nil
}

func (c *Connection) rollback() error {
	switch {
	case c.level == 0:
		return ErrNoTransaction
	case c.level == 1:
		if _, err := c.eng.Exec("ROLLBACK"); err != nil {
			return NewEngineError("rollback failed", err)
		}
	default:
		name := savepointName(c.level - 1)
		if _, err := c.eng.Exec("ROLLBACK TO SAVEPOINT " + name); err != nil {
			return NewEngineError("rollback to savepoint "+name+" failed", err)
		}
	}
	c.level--
	return nil
}

// Transact wraps a unit of work in a transaction. It begins, runs the work,
// and commits, returning the work's result. If the work fails, the
// transaction is rolled back and the work's error is returned; a failure from
// the rollback itself is logged rather than masking the original error. If
// Begin fails, the work is never run.
func Transact[T any](c *Connection, work func() (T, error)) (T, error) {
	var zero T
	if err := c.Begin(); err != nil {
		return zero, err
	}
	result, err := work()
	if err != nil {
		if rbErr := c.Rollback(); rbErr != nil {
			c.logger.Error("rollback failed after work error",
				"connection", c.id, "error", rbErr, "workError", err)
		}
		return zero, err
	}
	if err := c.Commit(); err != nil {
		return zero, err
	}
	return result, nil
}

// WithTransaction is Transact for work that produces no result.
func (c *Connection) WithTransaction(work func() error) error {
	_, err := Transact(c, func() (struct{}, error) {
		return struct{}{}, work()
	})
	return err
}
