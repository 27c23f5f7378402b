// Package capture owns the microphone on behalf of the session. It runs one of
// two mutually exclusive modes: push-to-talk recordings sent as voice
// messages, or a continuously published microphone track.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/messages"
	"github.com/koscakluka/ema-avatar/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MessageVoiceModeEnabled  = "Voice mode enabled"
	MessageVoiceModeDisabled = "Voice mode disabled"
	MessageEmptyRecording    = "Recording was empty and was not sent"
	MessageRecordingDropped  = "Recording discarded"
)

// SystemLog records capture notices.
type SystemLog interface {
	AppendSystem(text string) (messages.Message, error)
}

// VoiceSender delivers finalized push-to-talk recordings.
type VoiceSender interface {
	SendVoice(ctx context.Context, clip *audio.Clip) error
}

// ConnectionSource returns the currently open session connection, or
// [transport.ErrNotConnected].
type ConnectionSource func() (transport.Connection, error)

type Controller struct {
	microphone audio.Microphone
	log        SystemLog
	voice      VoiceSender
	connection ConnectionSource

	mu        sync.Mutex
	mode      Mode
	acquiring Mode
	// generation changes on every teardown so acquisitions that finish
	// afterwards know they lost the race.
	generation uint64

	onModeChange func(Mode)
}

type ControllerOption func(*Controller)

func WithModeChangeCallback(callback func(Mode)) ControllerOption {
	return func(c *Controller) {
		c.onModeChange = callback
	}
}

func NewController(microphone audio.Microphone, log SystemLog, voice VoiceSender, connection ConnectionSource, opts ...ControllerOption) *Controller {
	controller := &Controller{
		microphone: microphone,
		log:        log,
		voice:      voice,
		connection: connection,
		mode:       ModeNone{},
	}
	for _, opt := range opts {
		opt(controller)
	}
	return controller
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) IsRecording() bool {
	_, ok := c.Mode().(ModePushToTalk)
	return ok
}

func (c *Controller) VoiceModeEnabled() bool {
	_, ok := c.Mode().(ModeContinuous)
	return ok
}

// StartRecording acquires the microphone and starts buffering audio. It does
// nothing while a recording is already running or starting.
func (c *Controller) StartRecording(ctx context.Context) error {
	generation, proceed, err := c.beginAcquire(ModePushToTalk{})
	if !proceed {
		return err
	}

	ctx, span := tracer.Start(ctx, "start recording")
	defer span.End()

	buffer := &recordingBuffer{}
	handle, err := c.microphone.Acquire(ctx, buffer.write)
	if err != nil {
		c.endAcquire()
		return c.mediaAccessFailure(span, ModePushToTalk{}, err)
	}

	if !c.commit(generation, ModePushToTalk{handle: handle, buffer: buffer}) {
		buffer.close()
		c.releaseHandle(handle)
		return ErrTornDown
	}
	return nil
}

// StopRecording finalizes the running recording into a WAV clip and sends it
// as a voice message. The microphone is released before finalizing, so no
// exit path keeps it. It does nothing when no recording is running.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	recording, ok := c.mode.(ModePushToTalk)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.mode = ModeNone{}
	c.mu.Unlock()
	c.notifyModeChange(ModeNone{})

	ctx, span := tracer.Start(ctx, "stop recording")
	defer span.End()

	pcm := recording.buffer.close()
	encoding := recording.handle.EncodingInfo()
	c.releaseHandle(recording.handle)

	if len(pcm) == 0 {
		c.appendSystem(MessageEmptyRecording)
		return nil
	}

	clip, err := audio.EncodeWAV(pcm, encoding)
	if err != nil {
		err = fmt.Errorf("failed to finalize recording: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.appendSystem("Recording could not be processed: " + err.Error())
		return err
	}
	span.SetAttributes(attribute.String("clip.duration", clip.Duration.String()))

	return c.voice.SendVoice(ctx, clip)
}

// Enable acquires the microphone and publishes it to the session as a
// microphone track. It does nothing when voice mode is already on.
func (c *Controller) Enable(ctx context.Context) error {
	generation, proceed, err := c.beginAcquire(ModeContinuous{})
	if !proceed {
		return err
	}

	conn, err := c.connection()
	if err != nil {
		c.endAcquire()
		return fmt.Errorf("cannot enable voice mode: %w", err)
	}

	ctx, span := tracer.Start(ctx, "enable voice mode")
	defer span.End()

	track := newMicrophoneTrack()
	handle, err := c.microphone.Acquire(ctx, track.write)
	if err != nil {
		c.endAcquire()
		return c.mediaAccessFailure(span, ModeContinuous{}, err)
	}
	track.setEncodingInfo(handle.EncodingInfo())
	span.SetAttributes(attribute.String("track.id", track.ID()))

	if err := conn.PublishTrack(ctx, track, transport.WithSource(transport.SourceMicrophone)); err != nil {
		c.endAcquire()
		c.releaseHandle(handle)
		err = fmt.Errorf("failed to publish microphone: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.appendSystem("Voice mode could not be enabled: " + err.Error())
		return err
	}

	if !c.commit(generation, ModeContinuous{handle: handle, track: track, conn: conn}) {
		c.stopContinuous(ctx, ModeContinuous{handle: handle, track: track, conn: conn}, false)
		return ErrTornDown
	}

	c.appendSystem(MessageVoiceModeEnabled)
	return nil
}

// Disable unpublishes the microphone track and releases the microphone. It
// only affects voice mode; a running push-to-talk recording is left alone.
func (c *Controller) Disable(ctx context.Context) error {
	c.mu.Lock()
	_, ok := c.mode.(ModeContinuous)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Teardown(ctx)
}

// Teardown leaves whatever mode is active and releases the microphone. It is
// the one cleanup path for explicit disable, session loss and shutdown, and
// is safe to call any number of times.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	c.mode = ModeNone{}
	c.generation++
	c.mu.Unlock()

	switch mode := mode.(type) {
	case ModeContinuous:
		c.notifyModeChange(ModeNone{})
		return c.stopContinuous(ctx, mode, true)
	case ModePushToTalk:
		c.notifyModeChange(ModeNone{})
		mode.buffer.close()
		c.releaseHandle(mode.handle)
		c.appendSystem(MessageRecordingDropped)
	}
	return nil
}

func (c *Controller) stopContinuous(ctx context.Context, mode ModeContinuous, announce bool) error {
	ctx, span := tracer.Start(ctx, "disable voice mode")
	defer span.End()

	var unpublishErr error
	if err := mode.conn.UnpublishTrack(ctx, mode.track); err != nil {
		// An already closed connection has dropped the track with it.
		if !errors.Is(err, transport.ErrNotConnected) && !errors.Is(err, transport.ErrTrackNotPublished) {
			unpublishErr = fmt.Errorf("failed to unpublish microphone: %w", err)
			span.RecordError(unpublishErr)
		}
	}
	mode.track.SetSink(nil)
	c.releaseHandle(mode.handle)

	if announce {
		c.appendSystem(MessageVoiceModeDisabled)
	}
	return unpublishErr
}

// beginAcquire reserves the microphone for target. proceed is false when the
// call is a no-op or rejected (err set).
func (c *Controller) beginAcquire(target Mode) (generation uint64, proceed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, current := range []Mode{c.mode, c.acquiring} {
		switch current.(type) {
		case nil, ModeNone:
			continue
		}
		if current.Name() == target.Name() {
			return 0, false, nil
		}
		return 0, false, ErrModeConflict
	}

	c.acquiring = target
	return c.generation, true, nil
}

func (c *Controller) endAcquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = nil
}

// commit enters mode unless a teardown happened since generation was taken.
func (c *Controller) commit(generation uint64, mode Mode) bool {
	c.mu.Lock()
	c.acquiring = nil
	if c.generation != generation {
		c.mu.Unlock()
		return false
	}
	c.mode = mode
	c.mu.Unlock()

	c.notifyModeChange(mode)
	return true
}

func (c *Controller) mediaAccessFailure(span trace.Span, mode Mode, err error) error {
	failure := &MediaAccessError{Mode: mode.Name(), Err: err}
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())

	reason := err.Error()
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		reason = "permission denied"
	case errors.Is(err, audio.ErrDeviceUnavailable):
		reason = "no microphone available"
	}
	c.appendSystem("Microphone unavailable: " + reason)
	return failure
}

func (c *Controller) releaseHandle(handle audio.MicrophoneHandle) {
	if err := handle.Release(); err != nil {
		logger.Warn("failed to release microphone", "error", err)
	}
}

func (c *Controller) appendSystem(text string) {
	if c.log == nil {
		return
	}
	if _, err := c.log.AppendSystem(text); err != nil {
		logger.Warn("failed to record system message", "text", text, "error", err)
	}
}

func (c *Controller) notifyModeChange(mode Mode) {
	if c.onModeChange != nil {
		c.onModeChange(mode)
	}
}
