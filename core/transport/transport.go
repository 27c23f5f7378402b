// Package transport describes the real-time media transport capability the
// session core depends on. Connection establishment, media negotiation and
// wire formats belong to implementations such as the websocket subpackage.
package transport

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/events"
)

// TopicChat is the structured-text topic used for outbound chat text.
const TopicChat = "chat"

var (
	ErrNotConnected       = errors.New("transport connection is not open")
	ErrTrackNotPublished  = errors.New("track is not published")
	ErrTrackAlreadyExists = errors.New("track is already published")
)

type Source string

const SourceMicrophone Source = "microphone"

// LocalTrack is an outbound media track. The transport installs a sink on
// publish and removes it (nil) on unpublish.
type LocalTrack interface {
	ID() string
	Kind() events.TrackKind
	EncodingInfo() audio.EncodingInfo
	SetSink(sink func(frame []byte))
}

type Transport interface {
	// Connect opens a connection. It returns once the connection is open;
	// the session is live only after an [events.Established] event.
	Connect(ctx context.Context, url, token string, opts ...ConnectOption) (Connection, error)
}

type Connection interface {
	// SendText transmits text on a topic and waits for the remote side to
	// acknowledge it.
	SendText(ctx context.Context, text string, opts ...SendOption) error
	PublishTrack(ctx context.Context, track LocalTrack, opts ...PublishOption) error
	UnpublishTrack(ctx context.Context, track LocalTrack) error
	// Disconnect closes the connection. Repeated calls are ignored. No events
	// are delivered after Disconnect returns.
	Disconnect() error
}
