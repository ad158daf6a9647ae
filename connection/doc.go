package connection

// Package connection provides a single-owner access layer over one embedded
// SQLite database handle. Every operation against the handle - queries,
// execution, prepared-statement stepping, and transaction control - is routed
// through one mailbox goroutine that processes requests strictly one at a
// time, in arrival order. Nested transactions are implemented on top of the
// engine's single transaction level plus savepoints, addressed by a nesting
// counter alone.
