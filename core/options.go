package avatar

import (
	"context"
	"os"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/provisioning"
	"github.com/koscakluka/ema-avatar/core/transport"
	"github.com/koscakluka/ema-avatar/core/transport/websocket"
)

type ManagerOption func(*Manager)

type Provisioner interface {
	CreateSession(ctx context.Context) (*provisioning.Credentials, error)
	EndSession(ctx context.Context, sessionID string) error
}

// WithProvisioner replaces the session API client. By default the client
// targets AVATAR_API_BASE_URL.
func WithProvisioner(provisioner Provisioner) ManagerOption {
	return func(m *Manager) {
		m.provisioner = provisioner
	}
}

// WithTransport replaces the default websocket transport.
func WithTransport(transport transport.Transport) ManagerOption {
	return func(m *Manager) {
		m.transport = transport
	}
}

func WithMicrophone(microphone audio.Microphone) ManagerOption {
	return func(m *Manager) {
		m.microphone = microphone
	}
}

// TrackSink is a render surface for inbound avatar media.
type TrackSink interface {
	AttachTrack(track events.RemoteTrack)
}

// WithTrackSink adds a render surface. Every sink receives every track.
func WithTrackSink(sink TrackSink) ManagerOption {
	return func(m *Manager) {
		if sink != nil {
			m.trackSinks = append(m.trackSinks, sink)
		}
	}
}

// WithVoiceClipCallback receives each push-to-talk recording as it is sent.
func WithVoiceClipCallback(callback func(*audio.Clip)) ManagerOption {
	return func(m *Manager) {
		m.onVoiceClip = callback
	}
}

func defaultProvisioner() Provisioner {
	baseURL, _ := os.LookupEnv("AVATAR_API_BASE_URL")
	return provisioning.NewClient(baseURL)
}

func defaultTransport() transport.Transport {
	return websocket.NewTransport()
}

type noMicrophone struct{}

func (noMicrophone) Acquire(context.Context, func([]byte)) (audio.MicrophoneHandle, error) {
	return nil, audio.ErrDeviceUnavailable
}
