package events

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// RemoteTrack is an inbound media track. Frames are delivered to the
// registered handler in arrival order; a nil handler drops them.
type RemoteTrack interface {
	ID() string
	Kind() TrackKind
	OnFrame(handler func(frame []byte))
}
