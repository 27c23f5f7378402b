package capture

import (
	"bytes"
	"sync"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/transport"
)

// Mode is the active capture mode: [ModeNone], [ModePushToTalk] or
// [ModeContinuous]. Only one can be active, and only the last two hold a
// microphone.
type Mode interface {
	Name() string
	mode()
}

type ModeNone struct{}

func (ModeNone) Name() string { return "none" }
func (ModeNone) mode()        {}

// ModePushToTalk buffers captured audio until the recording is stopped.
type ModePushToTalk struct {
	handle audio.MicrophoneHandle
	buffer *recordingBuffer
}

func (ModePushToTalk) Name() string { return "push-to-talk" }
func (ModePushToTalk) mode()        {}

// ModeContinuous streams captured audio as a published session track.
type ModeContinuous struct {
	handle audio.MicrophoneHandle
	track  *MicrophoneTrack
	conn   transport.Connection
}

func (ModeContinuous) Name() string { return "continuous" }
func (ModeContinuous) mode()        {}

type recordingBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
	closed bool
}

func (b *recordingBuffer) write(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.buffer.Write(frame)
}

// close stops accepting audio and returns everything recorded so far.
func (b *recordingBuffer) close() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.buffer.Bytes()
}
