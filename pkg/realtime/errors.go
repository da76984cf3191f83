package realtime

import (
	"errors"
	"fmt"
)

// Realtime errors.
var (
	// ErrReconnectExhausted is the terminal error after the retry budget is
	// spent with subscribers still registered. The orphaned topic set is
	// reported through the OnDisconnect hook.
	ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")

	// ErrClientTerminated is returned to handshake waiters when the client
	// is explicitly torn down while they are blocked on connection
	// establishment.
	ErrClientTerminated = errors.New("realtime: client terminated")

	// ErrNoCallback is returned by Subscribe when no callback is given.
	ErrNoCallback = errors.New("realtime: callback is required")

	// ErrEmptyTopic is returned by Subscribe when the topic is empty.
	ErrEmptyTopic = errors.New("realtime: topic is required")
)

// ConnectionError indicates the stream failed to open or was closed
// unexpectedly. It drives the reconnect policy and is only surfaced once
// the policy gives up.
type ConnectionError struct {
	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("realtime: connection failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// HandshakeError indicates the stream opened but no valid identity frame
// arrived. It drives the reconnect policy the same way ConnectionError does.
type HandshakeError struct {
	// Reason describes what went wrong ("timeout", "invalid identity frame").
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("realtime: handshake failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("realtime: handshake failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// SyncError indicates a registration push was rejected by the server. It is
// surfaced to the caller whose subscribe/unsubscribe triggered the push and
// does not by itself tear down the connection. A push cancelled because a
// newer one superseded it is NOT a SyncError.
type SyncError struct {
	// Topics is the topic snapshot the failed push carried.
	Topics []string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("realtime: subscription sync failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// CallbackError describes a subscriber callback that panicked during
// dispatch. It is reported to the event log, never returned to callers;
// delivery to the remaining subscribers of the frame continues.
type CallbackError struct {
	// Topic is the topic being dispatched.
	Topic string

	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("realtime: subscriber callback for %q panicked: %v", e.Topic, e.Value)
}
