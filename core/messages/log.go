package messages

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

var (
	ErrDuplicateID   = errors.New("message append failed: id already present in log")
	ErrUnknownSender = errors.New("message append failed: unknown sender")
)

// Log is an append-only, ordered record of chat messages.
//
// Insertion order is chronological order: timestamps are clamped so that a
// message never precedes the one appended before it.
type Log struct {
	mu sync.RWMutex

	messages []Message
	ids      map[string]struct{}

	loading       bool
	pendingSource func() bool

	listenersMu    sync.Mutex
	listeners      map[int]func(Message)
	nextListenerID int
}

func NewLog() *Log {
	return &Log{
		ids:       map[string]struct{}{},
		listeners: map[int]func(Message){},
	}
}

// Append records message at the end of the log, assigning an id when the
// message has none and a timestamp when it is zero. The stored message is
// returned.
func (l *Log) Append(message Message) (Message, error) {
	switch message.Sender {
	case SenderUser, SenderAvatar, SenderSystem:
	default:
		return Message{}, ErrUnknownSender
	}

	l.mu.Lock()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if _, ok := l.ids[message.ID]; ok {
		l.mu.Unlock()
		return Message{}, ErrDuplicateID
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	if n := len(l.messages); n > 0 && message.Timestamp.Before(l.messages[n-1].Timestamp) {
		message.Timestamp = l.messages[n-1].Timestamp
	}

	l.ids[message.ID] = struct{}{}
	l.messages = append(l.messages, message)
	l.mu.Unlock()

	l.notify(message)
	return message, nil
}

func (l *Log) AppendSystem(text string) (Message, error) { return l.Append(NewSystemMessage(text)) }

// Messages returns a copy of the log contents, oldest first.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]Message, 0, len(l.messages))
	if err := copier.Copy(&snapshot, l.messages); err != nil {
		snapshot = append(snapshot[:0], l.messages...)
	}
	return snapshot
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the most recently appended message.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// SetLoading sets the external loading flag reported through IsPending.
func (l *Log) SetLoading(loading bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = loading
}

// SetPendingSource registers an additional pending signal, typically the
// transcription speaking indicator.
func (l *Log) SetPendingSource(source func() bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingSource = source
}

// IsPending reports whether a transient "typing" affordance should be shown.
// The affordance is never itself a message.
func (l *Log) IsPending() bool {
	l.mu.RLock()
	loading, source := l.loading, l.pendingSource
	l.mu.RUnlock()

	if loading {
		return true
	}
	return source != nil && source()
}

// Subscribe registers listener for every appended message. The returned
// function removes it.
func (l *Log) Subscribe(listener func(Message)) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	l.listenersMu.Lock()
	id := l.nextListenerID
	l.nextListenerID++
	l.listeners[id] = listener
	l.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.listenersMu.Lock()
			delete(l.listeners, id)
			l.listenersMu.Unlock()
		})
	}
}

func (l *Log) notify(message Message) {
	l.listenersMu.Lock()
	listeners := make([]func(Message), 0, len(l.listeners))
	for id := 0; id < l.nextListenerID; id++ {
		if listener, ok := l.listeners[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	l.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(message)
	}
}
