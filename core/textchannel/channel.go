// Package textchannel sends outbound chat to the session and records it in
// the message log before delivery is confirmed.
package textchannel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/messages"
	"github.com/koscakluka/ema-avatar/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// VoicePlaceholder is transmitted in place of a voice clip; speech
// recognition happens on the remote side.
const VoicePlaceholder = "[voice message]"

type MessageLog interface {
	Append(message messages.Message) (messages.Message, error)
	AppendSystem(text string) (messages.Message, error)
}

// ConnectionSource returns the currently open session connection, or
// [transport.ErrNotConnected].
type ConnectionSource func() (transport.Connection, error)

type Channel struct {
	log        MessageLog
	connection ConnectionSource

	onVoiceClip func(*audio.Clip)

	inFlight atomic.Bool
}

type ChannelOption func(*Channel)

// WithVoiceClipCallback hands every encoded voice clip to the embedding
// application before the placeholder is transmitted.
func WithVoiceClipCallback(callback func(*audio.Clip)) ChannelOption {
	return func(c *Channel) {
		c.onVoiceClip = callback
	}
}

func NewChannel(log MessageLog, connection ConnectionSource, opts ...ChannelOption) *Channel {
	channel := &Channel{
		log:        log,
		connection: connection,
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel
}

// Send records text as a User message and transmits it on the chat topic.
//
// Empty input and calls made while a previous send is outstanding are
// rejected without touching the log or the transport. A delivery failure is
// returned as [*SendFailure] and logged as a System message; the User message
// stays in the log.
func (c *Channel) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer c.inFlight.Store(false)

	ctx, span := tracer.Start(ctx, "send message")
	defer span.End()

	if _, err := c.log.Append(messages.NewUserMessage(text)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record message: %w", err)
	}

	return c.transmit(ctx, text)
}

// SendVoice logs a local voice message entry for clip and transmits the
// voice placeholder. Failures follow the same rules as [Channel.Send].
func (c *Channel) SendVoice(ctx context.Context, clip *audio.Clip) error {
	if clip == nil || len(clip.Data) == 0 {
		return ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer c.inFlight.Store(false)

	ctx, span := tracer.Start(ctx, "send voice message")
	defer span.End()
	span.SetAttributes(
		attribute.Int("clip.bytes", len(clip.Data)),
		attribute.String("clip.duration", clip.Duration.String()),
	)

	if _, err := c.log.Append(messages.NewUserMessage(voiceMessageText(clip))); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record voice message: %w", err)
	}

	if c.onVoiceClip != nil {
		c.onVoiceClip(clip)
	}

	return c.transmit(ctx, VoicePlaceholder)
}

func (c *Channel) transmit(ctx context.Context, payload string) error {
	conn, err := c.connection()
	if err == nil {
		err = conn.SendText(ctx, payload, transport.WithTopic(transport.TopicChat))
	}
	if err == nil {
		return nil
	}

	failure := &SendFailure{Text: payload, Err: err}
	span := trace.SpanFromContext(ctx)
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())

	reason := err.Error()
	if errors.Is(err, transport.ErrNotConnected) {
		reason = "not connected"
	}
	if _, logErr := c.log.AppendSystem("Message could not be sent: " + reason); logErr != nil {
		logger.Warn("failed to record send failure", "error", logErr)
	}
	return failure
}

func voiceMessageText(clip *audio.Clip) string {
	if clip.Duration <= 0 {
		return "Voice message"
	}
	return fmt.Sprintf("Voice message (%s)", clip.Duration.Round(100*time.Millisecond))
}
