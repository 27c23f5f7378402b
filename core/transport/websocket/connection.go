package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/transcription/deepgram"
	"github.com/koscakluka/ema-avatar/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ transport.Connection = (*connection)(nil)

type connection struct {
	ws      *websocket.Conn
	options transport.ConnectOptions

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan error

	tracksMu        sync.Mutex
	localTracks     map[string]uint8
	nextTrackNumber uint8
	remoteTracks    map[uint8]*remoteTrack

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(ws *websocket.Conn, options transport.ConnectOptions) *connection {
	return &connection{
		ws:           ws,
		options:      options,
		pending:      map[string]chan error{},
		localTracks:  map[string]uint8{},
		remoteTracks: map[uint8]*remoteTrack{},
		done:         make(chan struct{}),
	}
}

func (c *connection) SendText(ctx context.Context, text string, opts ...transport.SendOption) error {
	options := transport.NewSendOptions(opts...)

	ctx, span := tracer.Start(ctx, "send text")
	defer span.End()
	span.SetAttributes(attribute.String("text.topic", options.Topic))

	id := uuid.NewString()
	if err := c.request(ctx, id, TextFrame{Type: frameText, ID: id, Topic: options.Topic, Text: text}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

func (c *connection) PublishTrack(ctx context.Context, track transport.LocalTrack, opts ...transport.PublishOption) error {
	options := transport.NewPublishOptions(opts...)

	ctx, span := tracer.Start(ctx, "publish track")
	defer span.End()
	span.SetAttributes(
		attribute.String("track.id", track.ID()),
		attribute.String("track.source", string(options.Source)),
	)

	c.tracksMu.Lock()
	if _, ok := c.localTracks[track.ID()]; ok {
		c.tracksMu.Unlock()
		return transport.ErrTrackAlreadyExists
	}
	number := c.nextTrackNumber
	c.nextTrackNumber++
	c.localTracks[track.ID()] = number
	c.tracksMu.Unlock()

	encoding := track.EncodingInfo()
	id := uuid.NewString()
	if err := c.request(ctx, id, PublishTrackFrame{
		Type:       framePublishTrack,
		ID:         id,
		TrackID:    track.ID(),
		Number:     number,
		Kind:       string(track.Kind()),
		Source:     string(options.Source),
		Encoding:   encoding.Format.Name(),
		SampleRate: encoding.SampleRate,
	}); err != nil {
		c.tracksMu.Lock()
		delete(c.localTracks, track.ID())
		c.tracksMu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish track: %w", err)
	}

	track.SetSink(func(frame []byte) {
		if err := c.writeBinary(number, frame); err != nil && !c.closed.Load() {
			logger.Warn("failed to write track frame", "track", track.ID(), "error", err)
		}
	})
	return nil
}

func (c *connection) UnpublishTrack(ctx context.Context, track transport.LocalTrack) error {
	ctx, span := tracer.Start(ctx, "unpublish track")
	defer span.End()
	span.SetAttributes(attribute.String("track.id", track.ID()))

	c.tracksMu.Lock()
	_, ok := c.localTracks[track.ID()]
	delete(c.localTracks, track.ID())
	c.tracksMu.Unlock()
	if !ok {
		return transport.ErrTrackNotPublished
	}

	track.SetSink(nil)

	id := uuid.NewString()
	if err := c.request(ctx, id, UnpublishTrackFrame{Type: frameUnpublishTrack, ID: id, TrackID: track.ID()}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to unpublish track: %w", err)
	}
	return nil
}

func (c *connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		if wasClosed := c.closed.Swap(true); wasClosed {
			_ = c.ws.Close()
			return
		}

		c.writeMu.Lock()
		writeErr := c.ws.WriteJSON(LeaveFrame{Type: frameLeave})
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second),
		)
		c.writeMu.Unlock()

		if closeErr := c.ws.Close(); closeErr != nil {
			err = errors.Join(writeErr, closeErr)
		}
		c.failPending(transport.ErrNotConnected)
	})
	return err
}

func (c *connection) request(ctx context.Context, id string, frame any) error {
	if c.closed.Load() {
		return transport.ErrNotConnected
	}

	ack := make(chan error, 1)
	c.pendingMu.Lock()
	c.pending[id] = ack
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeJSON(frame); err != nil {
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-c.done:
		return transport.ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *connection) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ack := range c.pending {
		select {
		case ack <- err:
		default:
		}
		delete(c.pending, id)
	}
}

func (c *connection) writeJSON(frame any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return transport.ErrNotConnected
	}
	if err := c.ws.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

func (c *connection) writeBinary(number uint8, payload []byte) error {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, number)
	frame = append(frame, payload...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return transport.ErrNotConnected
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// emit delivers an event unless the connection was closed locally.
func (c *connection) emit(event events.Event) {
	if c.closed.Load() {
		return
	}
	c.options.EventCallback(event)
}

func (c *connection) readLoop() {
	defer close(c.done)

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			reason := "connection closed"
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = err.Error()
			}
			c.emit(events.NewLost(reason))
			c.closed.Store(true)
			c.failPending(transport.ErrNotConnected)
			_ = c.ws.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.processBinary(msg)
		case websocket.TextMessage:
			if lost := c.processText(msg); lost {
				c.closed.Store(true)
				c.failPending(transport.ErrNotConnected)
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *connection) processBinary(msg []byte) {
	if len(msg) < 1 {
		return
	}

	c.tracksMu.Lock()
	track := c.remoteTracks[msg[0]]
	c.tracksMu.Unlock()
	if track != nil {
		track.deliver(msg[1:])
	}
}

// processText handles one signalling frame and reports whether the remote
// side ended the session.
func (c *connection) processText(msg []byte) (lost bool) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		c.emit(events.NewTransportError(fmt.Errorf("failed to unmarshal frame: %w", err)))
		return false
	}

	switch parsedMsg.Type {
	case frameJoined:
		c.emit(events.NewEstablished())

	case frameAck:
		var ack AckFrame
		if err := json.Unmarshal(msg, &ack); err != nil {
			c.emit(events.NewTransportError(fmt.Errorf("failed to unmarshal ack: %w", err)))
			return false
		}
		var ackErr error
		if ack.Error != nil {
			ackErr = errors.New(*ack.Error)
		}
		c.pendingMu.Lock()
		if waiting, ok := c.pending[ack.ID]; ok {
			waiting <- ackErr
			delete(c.pending, ack.ID)
		}
		c.pendingMu.Unlock()

	case frameTrack:
		var frame TrackFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.emit(events.NewTransportError(fmt.Errorf("failed to unmarshal track: %w", err)))
			return false
		}
		if !c.options.AutoSubscribe {
			return false
		}
		track := &remoteTrack{id: frame.TrackID, kind: events.TrackKind(frame.Kind)}
		c.tracksMu.Lock()
		c.remoteTracks[frame.Number] = track
		c.tracksMu.Unlock()
		c.emit(events.NewTrackAvailable(track))

	case frameTextStream:
		var frame TextStreamFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.emit(events.NewTransportError(fmt.Errorf("failed to unmarshal text stream: %w", err)))
			return false
		}
		if frame.Topic != events.TopicTranscription {
			logger.Debug("ignoring text stream", "topic", frame.Topic)
			return false
		}
		chunk, ok, err := decodeTranscription(frame)
		if err != nil {
			c.emit(events.NewTransportError(err))
			return false
		}
		if ok {
			c.emit(chunk)
		}

	case frameError:
		var frame ErrorFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.emit(events.NewTransportError(fmt.Errorf("failed to unmarshal error: %w", err)))
			return false
		}
		c.emit(events.NewTransportError(errors.New(strings.TrimSpace(frame.Message))))

	case frameLeave:
		var frame LeaveFrame
		_ = json.Unmarshal(msg, &frame)
		reason := frame.Reason
		if reason == "" {
			reason = "remote participant left"
		}
		c.emit(events.NewLost(reason))
		return true

	default:
		logger.Debug("ignoring unknown frame", "type", parsedMsg.Type)
	}

	return false
}

func decodeTranscription(frame TextStreamFrame) (events.TranscriptionChunk, bool, error) {
	if frame.Attributes[AttributeFormat] == deepgram.FormatName {
		return deepgram.DecodeChunk([]byte(frame.Text))
	}

	segmentID := frame.Attributes[AttributeSegmentID]
	if segmentID == "" {
		return events.TranscriptionChunk{}, false, fmt.Errorf("transcription chunk without %s attribute", AttributeSegmentID)
	}
	isFinal := strings.EqualFold(frame.Attributes[AttributeTranscriptionFinal], "true")
	return events.NewTranscriptionChunk(segmentID, isFinal, frame.Text), true, nil
}
