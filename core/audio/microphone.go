package audio

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("microphone unavailable")
	ErrAlreadyReleased   = errors.New("microphone handle already released")
)

// Microphone grants access to a capture device.
//
// Acquire blocks until access is granted or refused. Captured frames are
// passed to onAudio until the returned handle is released; the slice is only
// valid for the duration of the call.
type Microphone interface {
	Acquire(ctx context.Context, onAudio func(frame []byte)) (MicrophoneHandle, error)
}

// MicrophoneHandle is a held capture device. Release stops capture and gives
// the device back; a second Release returns ErrAlreadyReleased.
type MicrophoneHandle interface {
	EncodingInfo() EncodingInfo
	Release() error
}
