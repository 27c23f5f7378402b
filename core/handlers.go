package avatar

import (
	"context"
	"time"

	"github.com/koscakluka/ema-avatar/core/events"
)

// handleEvent runs on the event queue goroutine, one event at a time.
func (m *Manager) handleEvent(item eventQueueItem) {
	if !m.accepts(item.epoch) {
		logger.Debug("discarding stale session event", "kind", item.event.Kind(), "epoch", item.epoch)
		return
	}
	logger.Debug("handling session event", "kind", item.event.Kind(), "queued_for", time.Since(item.queuedAt))

	switch event := item.event.(type) {
	case events.Established:
		m.onEstablished(item.epoch)
	case events.TrackAvailable:
		for _, sink := range m.trackSinks {
			sink.AttachTrack(event.Track)
		}
	case events.Lost:
		m.onLost(event)
	case events.TransportError:
		m.onTransportError(event)
	case events.TranscriptionChunk:
		if err := m.aggregator.Handle(event); err != nil {
			logger.Warn("failed to record transcription", "segment_id", event.SegmentID, "error", err)
		}
	default:
		logger.Debug("ignoring session event", "kind", item.event.Kind())
	}
}

// accepts reports whether an event from epoch belongs to the live session.
func (m *Manager) accepts(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return epoch == m.epoch && m.state != StateDisconnected
}

func (m *Manager) onEstablished(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) onLost(event events.Lost) {
	conn, credentials, ok := m.enterDisconnected(&UnexpectedDisconnect{Reason: event.Reason})
	if !ok {
		return
	}

	ctx := context.Background()
	if err := m.capture.Teardown(ctx); err != nil {
		logger.Warn("failed to tear down capture", "error", err)
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			logger.Debug("failed to close lost connection", "error", err)
		}
	}
	m.endSession(credentials)
	m.appendSystem(MessageDisconnected)
}

func (m *Manager) onTransportError(event events.TransportError) {
	connErr := &ConnectionError{Err: event.Err}

	m.mu.Lock()
	m.lastErr = connErr
	m.mu.Unlock()

	m.appendSystem("Connection error: " + event.Err.Error())
}
