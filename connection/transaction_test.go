package connection

import (
	"errors"
	"testing"
)

func countRows(t *testing.T, conn *Connection) int64 {
	t.Helper()
	rows, err := conn.Query("SELECT COUNT(*) AS n FROM test")
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return rows[0]["n"].(int64)
}

func TestSavepointNames(t *testing.T) {
	if name := savepointName(1); name != "S1" {
		t.Errorf("expected S1, got %s", name)
	}
	if name := savepointName(7); name != "S7" {
		t.Errorf("expected S7, got %s", name)
	}
}

func TestNestedCommitsAreTransparent(t *testing.T) {
	conn := newTestConnection(t)

	const depth = 4
	for i := 0; i < depth; i++ {
		if err := conn.Begin(); err != nil {
			t.Fatalf("begin %d failed: %v", i, err)
		}
		if got := conn.Level(); got != i+1 {
			t.Fatalf("after begin %d: expected level %d, got %d", i, i+1, got)
		}
		if _, err := conn.Execute("INSERT INTO test (name, age) VALUES (?, ?)", "nested", i); err != nil {
			t.Fatalf("insert at level %d failed: %v", i+1, err)
		}
	}
	for i := depth; i > 0; i-- {
		if err := conn.Commit(); err != nil {
			t.Fatalf("commit at level %d failed: %v", i, err)
		}
		if got := conn.Level(); got != i-1 {
			t.Fatalf("after commit at level %d: expected level %d, got %d", i, i-1, got)
		}
	}

	if got := countRows(t, conn); got != depth {
		t.Errorf("expected all %d writes committed, got %d", depth, got)
	}
}

func TestNestedRollbackKeepsOuterTransaction(t *testing.T) {
	conn := newTestConnection(t)

	if err := conn.Begin(); err != nil {
		t.Fatalf("outer begin failed: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO test (name) VALUES ('outer')"); err != nil {
		t.Fatalf("outer insert failed: %v", err)
	}

	if err := conn.Begin(); err != nil {
		t.Fatalf("inner begin failed: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO test (name) VALUES ('inner')"); err != nil {
		t.Fatalf("inner insert failed: %v", err)
	}
	if err := conn.Rollback(); err != nil {
		t.Fatalf("inner rollback failed: %v", err)
	}

	if got := conn.Level(); got != 1 {
		t.Fatalf("expected level 1 after inner rollback, got %d", got)
	}

	// The outer transaction is still open and usable.
	if _, err := conn.Execute("INSERT INTO test (name) VALUES ('after-rollback')"); err != nil {
		t.Fatalf("insert after inner rollback failed: %v", err)
	}
	if err := conn.Commit(); err != nil {
		t.Fatalf("outer commit failed: %v", err)
	}

	rows, err := conn.Query("SELECT name FROM test ORDER BY name")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(rows))
	}
	if rows[0]["name"] != "after-rollback" || rows[1]["name"] != "outer" {
		t.Errorf("unexpected surviving rows: %v", rows)
	}
}

func TestTopLevelRollbackDiscardsWrites(t *testing.T) {
	conn := newTestConnection(t)

	if err := conn.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO test (name) VALUES ('discarded')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := conn.Rollback(); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	if got := conn.Level(); got != 0 {
		t.Errorf("expected level 0 after rollback, got %d", got)
	}
	if got := countRows(t, conn); got != 0 {
		t.Errorf("expected no rows after rollback, got %d", got)
	}
}

func TestReusedSavepointNamesAfterCommit(t *testing.T) {
	conn := newTestConnection(t)

	// Drive the level up and down repeatedly so the same savepoint names are
	// created, released and recreated.
	if err := conn.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := conn.Begin(); err != nil {
			t.Fatalf("nested begin %d failed: %v", i, err)
		}
		if _, err := conn.Execute("INSERT INTO test (name, age) VALUES ('cycle', ?)", i); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
		if err := conn.Commit(); err != nil {
			t.Fatalf("nested commit %d failed: %v", i, err)
		}
		if got := conn.Level(); got != 1 {
			t.Fatalf("expected level 1 after cycle %d, got %d", i, got)
		}
	}
	if err := conn.Commit(); err != nil {
		t.Fatalf("outer commit failed: %v", err)
	}

	if got := countRows(t, conn); got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestCommitWithoutTransaction(t *testing.T) {
	conn := newTestConnection(t)

	err := conn.Commit()
	if !IsNoTransactionError(err) {
		t.Errorf("expected no-transaction error from commit, got %v", err)
	}
	if !errors.Is(err, ErrNoTransaction) {
		t.Errorf("expected ErrNoTransaction sentinel, got %v", err)
	}
}

func TestRollbackWithoutTransaction(t *testing.T) {
	conn := newTestConnection(t)

	if err := conn.Rollback(); !IsNoTransactionError(err) {
		t.Errorf("expected no-transaction error from rollback, got %v", err)
	}
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	conn := newTestConnection(t)

	err := conn.WithTransaction(func() error {
		_, err := conn.Execute("INSERT INTO test (name) VALUES ('committed')")
		return err
	})
	if err != nil {
		t.Fatalf("transaction helper failed: %v", err)
	}

	if got := conn.Level(); got != 0 {
		t.Errorf("expected level 0 after helper, got %d", got)
	}
	if got := countRows(t, conn); got != 1 {
		t.Errorf("expected 1 row, got %d", got)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	conn := newTestConnection(t)

	workErr := errors.New("work failed")
	err := conn.WithTransaction(func() error {
		if _, err := conn.Execute("INSERT INTO test (name) VALUES ('rolled-back')"); err != nil {
			return err
		}
		return workErr
	})
	if !errors.Is(err, workErr) {
		t.Fatalf("expected the work's error to surface, got %v", err)
	}

	if got := conn.Level(); got != 0 {
		t.Errorf("expected level 0 after rollback, got %d", got)
	}
	if got := countRows(t, conn); got != 0 {
		t.Errorf("expected no rows after rollback, got %d", got)
	}
}

func TestTransactReturnsWorkResult(t *testing.T) {
	conn := newTestConnection(t)

	id, err := Transact(conn, func() (int64, error) {
		result, err := conn.Execute("INSERT INTO test (name) VALUES ('with-result')")
		if err != nil {
			return 0, err
		}
		return result.LastInsertID, nil
	})
	if err != nil {
		t.Fatalf("transact failed: %v", err)
	}
	if id == 0 {
		t.Errorf("expected a non-zero insert id")
	}
}

func TestTransactNested(t *testing.T) {
	conn := newTestConnection(t)

	err := conn.WithTransaction(func() error {
		if _, err := conn.Execute("INSERT INTO test (name) VALUES ('outer')"); err != nil {
			return err
		}
		// The inner unit fails and rolls back to its savepoint; the outer
		// unit commits its own write regardless.
		innerErr := conn.WithTransaction(func() error {
			if _, err := conn.Execute("INSERT INTO test (name) VALUES ('inner')"); err != nil {
				return err
			}
			return errors.New("inner failure")
		})
		if innerErr == nil {
			return errors.New("expected inner failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer transaction failed: %v", err)
	}

	rows, err := conn.Query("SELECT name FROM test")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "outer" {
		t.Errorf("expected only the outer write to survive, got %v", rows)
	}
}
