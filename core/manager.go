// Package avatar runs a real-time session with a remote conversational
// avatar. The [Manager] owns the connection state machine and wires the
// message log, transcription, text and capture components to session events.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/capture"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/messages"
	"github.com/koscakluka/ema-avatar/core/provisioning"
	"github.com/koscakluka/ema-avatar/core/textchannel"
	"github.com/koscakluka/ema-avatar/core/transcription"
	"github.com/koscakluka/ema-avatar/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MessageDisconnected = "Disconnected"

	endSessionTimeout = 5 * time.Second
)

type ConnectionState string

const (
	StateIdle         ConnectionState = "idle"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// Snapshot is the observable session state handed to subscribers.
type Snapshot struct {
	State       ConnectionState
	Messages    []messages.Message
	Pending     bool
	Speaking    bool
	CaptureMode capture.Mode
	LastError   error
}

type Manager struct {
	provisioner Provisioner
	transport   transport.Transport
	microphone  audio.Microphone
	trackSinks  []TrackSink
	onVoiceClip func(*audio.Clip)

	log        *messages.Log
	aggregator *transcription.Aggregator
	text       *textchannel.Channel
	capture    *capture.Controller
	events     *eventQueue

	mu          sync.Mutex
	state       ConnectionState
	epoch       uint64
	connecting  bool
	conn        transport.Connection
	credentials *provisioning.Credentials
	lastErr     error

	subscribersMu    sync.Mutex
	subscribers      map[int]func(Snapshot)
	nextSubscriberID int

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		state:       StateIdle,
		log:         messages.NewLog(),
		subscribers: map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.provisioner == nil {
		m.provisioner = defaultProvisioner()
	}
	if m.transport == nil {
		m.transport = defaultTransport()
	}
	if m.microphone == nil {
		m.microphone = noMicrophone{}
	}

	m.aggregator = transcription.NewAggregator(m.log,
		transcription.WithSpeakingChangedCallback(func(bool) { m.notify() }),
	)
	m.log.SetPendingSource(m.aggregator.IsSpeaking)
	m.log.Subscribe(func(messages.Message) { m.notify() })

	var textOpts []textchannel.ChannelOption
	if m.onVoiceClip != nil {
		textOpts = append(textOpts, textchannel.WithVoiceClipCallback(m.onVoiceClip))
	}
	m.text = textchannel.NewChannel(m.log, m.connection, textOpts...)
	m.capture = capture.NewController(m.microphone, m.log, m.text,
		func() (transport.Connection, error) { return m.connection() },
		capture.WithModeChangeCallback(func(capture.Mode) { m.notify() }),
	)

	m.events = newEventQueue(m.handleEvent)
	m.events.start()
	return m
}

// Connect creates a backend session and opens the transport connection.
//
// It does nothing while a connection is being set up or is live. Missing
// credentials fail with [*SessionCreationError] and a failed dial with
// [*ConnectionError]; both leave the manager Idle. Connect returns once the
// transport is open; the session becomes Connected when it is established.
func (m *Manager) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	if m.connecting || m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	newEpoch := m.state == StateDisconnected
	if newEpoch {
		m.epoch++
		m.state = StateIdle
		m.lastErr = nil
	}
	m.connecting = true
	epoch := m.epoch
	m.mu.Unlock()

	if newEpoch {
		m.aggregator.Reset()
		m.notify()
	}

	ctx, span := tracer.Start(ctx, "connect")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.epoch", int64(epoch)))

	credentials, err := m.provisioner.CreateSession(ctx)
	if err == nil && (credentials == nil || credentials.ConnectionURL == "" || credentials.ConnectionToken == "") {
		err = provisioning.ErrIncompleteCredentials
	}
	if err != nil {
		sessionErr := &SessionCreationError{Err: err}
		span.RecordError(sessionErr)
		span.SetStatus(codes.Error, sessionErr.Error())

		m.mu.Lock()
		m.connecting = false
		m.lastErr = sessionErr
		m.mu.Unlock()

		m.appendSystem("Could not start a session: " + err.Error())
		return sessionErr
	}

	m.mu.Lock()
	if m.state != StateIdle || m.epoch != epoch {
		m.connecting = false
		m.mu.Unlock()
		m.endSession(credentials)
		return ErrConnectAborted
	}
	m.credentials = credentials
	m.state = StateConnecting
	m.mu.Unlock()
	m.notify()

	conn, err := m.transport.Connect(ctx, credentials.ConnectionURL, credentials.ConnectionToken,
		transport.WithAutoSubscribe(true),
		transport.WithEventCallback(func(event events.Event) { m.events.enqueue(epoch, event) }),
	)

	m.mu.Lock()
	m.connecting = false
	if err != nil {
		connErr := &ConnectionError{Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())

		stillConnecting := m.state == StateConnecting && m.epoch == epoch
		if stillConnecting {
			m.state = StateIdle
			m.credentials = nil
			m.lastErr = connErr
		}
		m.mu.Unlock()

		if stillConnecting {
			m.endSession(credentials)
			m.appendSystem("Could not connect: " + err.Error())
			m.notify()
		}
		return connErr
	}

	if m.state == StateDisconnected || m.epoch != epoch {
		m.mu.Unlock()
		if err := conn.Disconnect(); err != nil {
			logger.Warn("failed to close abandoned connection", "error", err)
		}
		return ErrConnectAborted
	}
	m.conn = conn
	m.mu.Unlock()

	span.SetAttributes(attribute.String("session.id", credentials.SessionID))
	return nil
}

// Disconnect ends the session: capture is torn down, the transport is closed
// and the backend session is ended. Only the first call after a session was
// started has any effect. Called while connecting it forces Disconnected, and
// an establishment arriving afterwards is ignored.
func (m *Manager) Disconnect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "disconnect")
	defer span.End()

	conn, credentials, ok := m.enterDisconnected(nil)
	if !ok {
		return nil
	}

	var errs []error
	if err := m.capture.Teardown(ctx); err != nil {
		errs = append(errs, err)
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	m.endSession(credentials)
	m.appendSystem(MessageDisconnected)

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Close disconnects and stops event processing. The manager cannot be used
// afterwards.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.Disconnect(context.Background())
		m.closed.Store(true)
		if teardownErr := m.capture.Teardown(context.Background()); teardownErr != nil {
			err = errors.Join(err, teardownErr)
		}
		m.events.end()
		m.events.waitUntilEnded()
	})
	return err
}

// Send records text as a User message and sends it to the avatar. See
// [textchannel.Channel.Send].
func (m *Manager) Send(ctx context.Context, text string) error {
	return m.text.Send(ctx, text)
}

func (m *Manager) StartRecording(ctx context.Context) error { return m.capture.StartRecording(ctx) }
func (m *Manager) StopRecording(ctx context.Context) error  { return m.capture.StopRecording(ctx) }

// EnableVoiceMode publishes the microphone continuously. Text input should be
// disabled by the caller while it is on.
func (m *Manager) EnableVoiceMode(ctx context.Context) error { return m.capture.Enable(ctx) }
func (m *Manager) DisableVoiceMode(ctx context.Context) error {
	return m.capture.Disable(ctx)
}

// SetLoading sets the external loading flag reflected in Snapshot.Pending.
func (m *Manager) SetLoading(loading bool) {
	m.log.SetLoading(loading)
	m.notify()
}

func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error that ended or prevented the current session.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) Messages() *messages.Log { return m.log }

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	state, lastErr := m.state, m.lastErr
	m.mu.Unlock()

	return Snapshot{
		State:       state,
		Messages:    m.log.Messages(),
		Pending:     m.log.IsPending(),
		Speaking:    m.aggregator.IsSpeaking(),
		CaptureMode: m.capture.Mode(),
		LastError:   lastErr,
	}
}

// Subscribe calls listener with a fresh snapshot after every observable
// change. The returned function removes it.
func (m *Manager) Subscribe(listener func(Snapshot)) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	m.subscribersMu.Lock()
	id := m.nextSubscriberID
	m.nextSubscriberID++
	m.subscribers[id] = listener
	m.subscribersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subscribersMu.Lock()
			delete(m.subscribers, id)
			m.subscribersMu.Unlock()
		})
	}
}

func (m *Manager) notify() {
	m.subscribersMu.Lock()
	if len(m.subscribers) == 0 {
		m.subscribersMu.Unlock()
		return
	}
	listeners := make([]func(Snapshot), 0, len(m.subscribers))
	for id := 0; id < m.nextSubscriberID; id++ {
		if listener, ok := m.subscribers[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	m.subscribersMu.Unlock()

	snapshot := m.Snapshot()
	for _, listener := range listeners {
		listener(snapshot)
	}
}

// connection returns the live connection. Sends are only allowed once the
// session is established.
func (m *Manager) connection() (transport.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.conn == nil {
		return nil, transport.ErrNotConnected
	}
	return m.conn, nil
}

// enterDisconnected moves the current session to Disconnected and hands
// back what needs closing. ok is false when there was nothing to end.
func (m *Manager) enterDisconnected(cause error) (conn transport.Connection, credentials *provisioning.Credentials, ok bool) {
	m.mu.Lock()
	switch {
	case m.state == StateDisconnected,
		m.state == StateIdle && !m.connecting:
		m.mu.Unlock()
		return nil, nil, false
	}

	m.state = StateDisconnected
	conn, credentials = m.conn, m.credentials
	m.conn, m.credentials = nil, nil
	if cause != nil {
		m.lastErr = cause
	}
	m.mu.Unlock()

	// A session that ended mid-utterance must not leave the typing
	// affordance on.
	m.aggregator.Reset()
	m.notify()
	return conn, credentials, true
}

func (m *Manager) endSession(credentials *provisioning.Credentials) {
	if credentials == nil || credentials.SessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), endSessionTimeout)
	defer cancel()
	if err := m.provisioner.EndSession(ctx, credentials.SessionID); err != nil {
		logger.Warn("failed to end session", "session_id", credentials.SessionID, "error", err)
	}
}

func (m *Manager) appendSystem(text string) {
	if _, err := m.log.AppendSystem(text); err != nil {
		logger.Warn("failed to record system message", "text", text, "error", err)
	}
}
