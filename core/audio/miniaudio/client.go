package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/events"
)

var _ audio.Microphone = (*Client)(nil)

// Client owns a miniaudio context. It hands out microphone handles and plays
// inbound avatar audio tracks.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient

	mu      sync.Mutex
	capture *captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	return &client, nil
}

// Acquire initializes and starts the default capture device. Only one handle
// can be held at a time.
func (c *Client) Acquire(ctx context.Context, onAudio func(frame []byte)) (audio.MicrophoneHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		return nil, fmt.Errorf("%w: capture device already held", audio.ErrDeviceUnavailable)
	}

	capture := &captureClient{}
	if err := capture.Init(c.audioContext); err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}
	if err := capture.Start(onAudio); err != nil {
		_ = capture.Uninit()
		return nil, fmt.Errorf("%w: %w", audio.ErrPermissionDenied, err)
	}

	c.capture = capture
	return &captureHandle{client: c, capture: capture}, nil
}

func (c *Client) release(capture *captureClient) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != capture {
		return audio.ErrAlreadyReleased
	}
	c.capture = nil

	stopErr := capture.Stop()
	_ = capture.Uninit()
	return stopErr
}

// AttachTrack routes inbound audio tracks to the playback device. Video
// tracks are ignored.
func (c *Client) AttachTrack(track events.RemoteTrack) {
	if track == nil || track.Kind() != events.TrackKindAudio {
		return
	}

	if err := c.playbackClient.Start(); err != nil {
		logger.Error("failed to start playback device", "error", err)
		return
	}
	track.OnFrame(func(frame []byte) {
		if err := c.playbackClient.SendAudio(frame); err != nil {
			logger.Warn("dropped avatar audio frame", "error", err)
		}
	})
}

func (c *Client) Close() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
		_ = capture.Uninit()
	}
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

type captureHandle struct {
	client  *Client
	capture *captureClient
}

func (h *captureHandle) EncodingInfo() audio.EncodingInfo { return h.client.EncodingInfo() }
func (h *captureHandle) Release() error                   { return h.client.release(h.capture) }
