package websocket

import (
	"sync"

	"github.com/koscakluka/ema-avatar/core/events"
)

var _ events.RemoteTrack = (*remoteTrack)(nil)

type remoteTrack struct {
	id   string
	kind events.TrackKind

	mu      sync.Mutex
	handler func(frame []byte)
}

func (t *remoteTrack) ID() string             { return t.id }
func (t *remoteTrack) Kind() events.TrackKind { return t.kind }

func (t *remoteTrack) OnFrame(handler func(frame []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *remoteTrack) deliver(frame []byte) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
}
