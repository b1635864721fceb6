package client

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a caller-initiated cancellation, distinct from
// NetworkError and ProtocolError.
var ErrCancelled = errors.New("execution cancelled")

// ProtocolError reports a malformed streamed response: a missing or
// invalid header, a non-array row, or a row whose value count does not
// match the column schema. It terminates the one execution it occurred
// on, never the process.
type ProtocolError struct {
	QueryID string
	Msg     string
}

func (e *ProtocolError) Error() string {
	if e.QueryID == "" {
		return "protocol error: " + e.Msg
	}
	return fmt.Sprintf("protocol error (query %s): %s", e.QueryID, e.Msg)
}

// ConversionError reports a column value that cannot be mapped into
// its target field without loss.
type ConversionError struct {
	Column string
	Value  interface{}
	Target string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert column %s value %v into %s", e.Column, e.Value, e.Target)
}

// NetworkError reports a connect failure, mid-stream disconnect, or
// timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-success HTTP status from the server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
