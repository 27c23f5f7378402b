package avatar

import (
	"errors"
	"fmt"
)

var (
	ErrClosed = errors.New("session manager is closed")
	// ErrConnectAborted is returned by a Connect that was overtaken by
	// Disconnect before the session was established.
	ErrConnectAborted = errors.New("connect aborted by disconnect")
)

// SessionCreationError means the backend did not hand out usable
// credentials. The manager stays Idle.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("failed to create session: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// ConnectionError is a transport failure. Errors reported on a live
// connection leave the connection state unchanged.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnexpectedDisconnect ends the current session. There is no automatic
// reconnect.
type UnexpectedDisconnect struct {
	Reason string
}

func (e *UnexpectedDisconnect) Error() string {
	if e.Reason == "" {
		return "session lost"
	}
	return "session lost: " + e.Reason
}
