package connection

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeEngine represents errors reported by the database engine
	ErrorTypeEngine
	// ErrorTypeClosed represents operations against a closed connection
	ErrorTypeClosed
	// ErrorTypeNoTransaction represents commit/rollback with no open transaction
	ErrorTypeNoTransaction
)

// Error represents a structured error with type information
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType checks if the error is of a specific type
func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// NewError creates a new Error with the specified type and message
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error with the specified type, message, and underlying cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewEngineError wraps an engine-reported failure. The cause is preserved and
// surfaced verbatim through Unwrap.
func NewEngineError(message string, cause error) *Error {
	return NewErrorWithCause(ErrorTypeEngine, message, cause)
}

var (
	// ErrConnectionClosed is returned for any request issued against a
	// connection that has been closed.
	ErrConnectionClosed = NewError(ErrorTypeClosed, "connection closed")

	// ErrNoTransaction is returned by Commit and Rollback when no transaction
	// is open.
	ErrNoTransaction = NewError(ErrorTypeNoTransaction, "no transaction in progress")
)

// IsEngineError checks if an error was reported by the database engine
func IsEngineError(err error) bool {
	if cErr, ok := err.(*Error); ok {
		return cErr.IsType(ErrorTypeEngine)
	}
	return false
}

// IsClosedError checks if an error is due to the connection being closed
func IsClosedError(err error) bool {
	if cErr, ok := err.(*Error); ok {
		return cErr.IsType(ErrorTypeClosed)
	}
	return false
}

// IsNoTransactionError checks if an error is due to an unbalanced commit or rollback
func IsNoTransactionError(err error) bool {
	if cErr, ok := err.(*Error); ok {
		return cErr.IsType(ErrorTypeNoTransaction)
	}
	return false
}
