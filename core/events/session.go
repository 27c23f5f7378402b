package events

const (
	// KindEstablished identifies a completed transport handshake.
	KindEstablished Kind = "session.established"
	// KindTrackAvailable identifies a remote track ready to be attached.
	KindTrackAvailable Kind = "session.track_available"
	// KindLost identifies a dropped connection.
	KindLost Kind = "session.lost"
	// KindTransportError identifies a recoverable transport error.
	KindTransportError Kind = "session.transport_error"
)

// Established marks the session as live.
type Established struct{ Base }

// NewEstablished creates a session established event.
func NewEstablished() Established {
	return Established{Base: NewBase(KindEstablished)}
}

// TrackAvailable carries a remote track published by the avatar.
type TrackAvailable struct {
	Base
	Track RemoteTrack
}

// NewTrackAvailable creates a track available event.
func NewTrackAvailable(track RemoteTrack) TrackAvailable {
	return TrackAvailable{Base: NewBase(KindTrackAvailable), Track: track}
}

// Lost marks the connection as dropped.
type Lost struct {
	Base
	Reason string
}

// NewLost creates a connection lost event.
func NewLost(reason string) Lost {
	return Lost{Base: NewBase(KindLost), Reason: reason}
}

// TransportError carries a recoverable transport error.
type TransportError struct {
	Base
	Err error
}

// NewTransportError creates a transport error event.
func NewTransportError(err error) TransportError {
	return TransportError{Base: NewBase(KindTransportError), Err: err}
}
