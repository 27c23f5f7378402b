package events

import "time"

type Kind string

// Event is one of the closed set of session events declared in this package.
type Event interface {
	Kind() Kind
	Timestamp() time.Time

	sessionEvent()
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (Base) sessionEvent() {}
