package capture

import (
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/transport"
)

var _ transport.LocalTrack = (*MicrophoneTrack)(nil)

// MicrophoneTrack forwards captured microphone frames to whatever sink the
// transport installed when publishing it.
type MicrophoneTrack struct {
	id string

	mu       sync.Mutex
	encoding audio.EncodingInfo
	sink     func(frame []byte)
}

func newMicrophoneTrack() *MicrophoneTrack {
	return &MicrophoneTrack{
		id:       "mic-" + uuid.NewString(),
		encoding: audio.GetDefaultEncodingInfo(),
	}
}

func (t *MicrophoneTrack) ID() string             { return t.id }
func (t *MicrophoneTrack) Kind() events.TrackKind { return events.TrackKindAudio }

func (t *MicrophoneTrack) EncodingInfo() audio.EncodingInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encoding
}

func (t *MicrophoneTrack) SetSink(sink func(frame []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

func (t *MicrophoneTrack) setEncodingInfo(encoding audio.EncodingInfo) {
	if encoding.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.encoding = encoding
}

func (t *MicrophoneTrack) write(frame []byte) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(frame)
	}
}
