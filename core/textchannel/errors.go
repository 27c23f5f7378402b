package textchannel

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInProgress = errors.New("another message is still being sent")
)

// SendFailure reports that a message was recorded locally but could not be
// delivered to the session.
type SendFailure struct {
	Text string
	Err  error
}

func (e *SendFailure) Error() string {
	return fmt.Sprintf("failed to deliver message: %v", e.Err)
}

func (e *SendFailure) Unwrap() error { return e.Err }
