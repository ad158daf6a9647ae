package engine

// Package engine wraps the embedded SQLite engine behind the small capability
// set the connection layer consumes: open/close a handle, execute SQL, run
// queries, and drive prepared-statement cursors. All result rows leave this
// package already shaped as field-name-keyed mappings; the three raw shapes a
// query can produce (no rows, one row, many rows) are normalized here and never
// propagate upward.
