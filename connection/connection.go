package connection

// Connection is the serialization point for one database handle. Callers from
// any goroutine submit requests; the mailbox goroutine owns the engine handle
// and the transaction nesting level exclusively, so no engine call ever races
// another and no request is reordered ahead of an earlier one.

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tomyedwab/sqlserial/engine"
)

// Config carries the options for opening a connection.
type Config struct {
	// DriverName selects the database/sql driver. Defaults to "sqlite3".
	DriverName string

	// DataSourceName is passed to the driver. ":memory:" opens an ephemeral
	// in-memory database.
	DataSourceName string

	// Logger is optional and defaults to slog.Default().
	Logger *slog.Logger
}

type request struct {
	run  func()
	done chan struct{}
}

// Connection owns one open database handle. All methods are safe for
// concurrent use; each one submits a single request to the mailbox and blocks
// until the reply.
type Connection struct {
	id     string
	logger *slog.Logger
	eng    *engine.Engine

	// level tracks transaction nesting depth. 0 means no transaction, 1 means
	// a top-level transaction, n > 1 means n-1 nested savepoints inside it.
	// Only the mailbox goroutine reads or writes it.
	level int

	reqs      chan *request
	stop      chan struct{}
	closeOnce sync.Once
}

// Open opens the database handle and starts the mailbox goroutine.
func Open(config Config) (*Connection, error) {
	if config.DriverName == "" {
		config.DriverName = "sqlite3"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	eng, err := engine.Open(config.DriverName, config.DataSourceName)
	if err != nil {
		return nil, NewEngineError("failed to open database", err)
	}

	c := &Connection{
		id:     uuid.NewString(),
		logger: config.Logger,
		eng:    eng,
		reqs:   make(chan *request),
		stop:   make(chan struct{}),
	}
	go c.run()

	c.logger.Debug("connection opened", "connection", c.id, "dataSource", config.DataSourceName)
	return c, nil
}

// run is the mailbox loop. It is the only goroutine that touches the engine
// handle; the deferred shutdown releases the handle exactly once, even if a
// request panics.
func (c *Connection) run() {
	defer c.shutdown()
	for {
		select {
		case <-c.stop:
			return
		case req := <-c.reqs:
			c.process(req)
		}
	}
}

func (c *Connection) process(req *request) {
	// The reply must be delivered even if the request panics, or its caller
	// would block forever.
	defer close(req.done)
	req.run()
}

func (c *Connection) shutdown() {
	if r := recover(); r != nil {
		c.logger.Error("connection worker panicked", "connection", c.id, "panic", r)
	}
	c.closeOnce.Do(func() { close(c.stop) })
	if err := c.eng.Close(); err != nil {
		c.logger.Error("failed to close database handle", "connection", c.id, "error", err)
	}
	c.logger.Debug("connection closed", "connection", c.id)
}

// call submits one request and blocks until it has been processed. It returns
// ErrConnectionClosed, without running fn, if the connection is closed before
// the request is accepted.
func (c *Connection) call(fn func()) error {
	select {
	case <-c.stop:
		return ErrConnectionClosed
	default:
	}

	req := &request{run: fn, done: make(chan struct{})}
	select {
	case c.reqs <- req:
	case <-c.stop:
		return ErrConnectionClosed
	}

	// The mailbox channel is unbuffered, so an accepted request is already
	// being processed and its done channel is guaranteed to close.
	<-req.done
	return nil
}

// ID returns the connection's identifier, as used in log output.
func (c *Connection) ID() string {
	return c.id
}

// Query runs a statement and returns all of its rows as field-name-keyed
// mappings.
func (c *Connection) Query(query string, params ...any) ([]engine.Row, error) {
	var rows []engine.Row
	var err error
	if cerr := c.call(func() {
		rows, err = c.eng.Query(query, params...)
	}); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, NewEngineError("query failed", err)
	}
	return rows, nil
}

// Execute runs a statement that returns no rows.
func (c *Connection) Execute(query string, params ...any) (engine.Result, error) {
	var result engine.Result
	var err error
	if cerr := c.call(func() {
		result, err = c.eng.Exec(query, params...)
	}); cerr != nil {
		return engine.Result{}, cerr
	}
	if err != nil {
		return engine.Result{}, NewEngineError("exec failed", err)
	}
	return result, nil
}

// Prepare compiles a statement and returns a handle owned by the caller. The
// handle stays valid until it is closed or the connection closes.
func (c *Connection) Prepare(query string) (*Statement, error) {
	var token *engine.Statement
	var err error
	if cerr := c.call(func() {
		token, err = c.eng.Prepare(query)
	}); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, NewEngineError("prepare failed", err)
	}
	return &Statement{conn: c, token: token}, nil
}

// Level reports the current transaction nesting depth.
func (c *Connection) Level() int {
	var level int
	if err := c.call(func() { level = c.level }); err != nil {
		return 0
	}
	return level
}

// Close terminates the connection. It is fire-and-forget: it signals the
// mailbox goroutine and returns without waiting for the engine handle to be
// released. Requests issued after Close fail with ErrConnectionClosed.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}
