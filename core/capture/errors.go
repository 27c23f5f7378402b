package capture

import (
	"errors"
	"fmt"
)

var (
	ErrModeConflict = errors.New("another capture mode is active")
	// ErrTornDown is returned by a mode switch that was still acquiring the
	// microphone when the controller was torn down.
	ErrTornDown = errors.New("capture was torn down")
)

// MediaAccessError reports that the microphone could not be acquired. The
// requested mode was not entered.
type MediaAccessError struct {
	Mode string
	Err  error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("microphone access failed for %s mode: %v", e.Mode, e.Err)
}

func (e *MediaAccessError) Unwrap() error { return e.Err }
