package avatar

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-avatar/core/events"
)

const eventQueueCapacity = 64

type eventQueueItem struct {
	epoch    uint64
	event    events.Event
	queuedAt time.Time
	// barrier is closed once every item queued before it has been handled.
	barrier chan struct{}
}

// eventQueue delivers session events to a single handler goroutine in the
// order they were queued.
type eventQueue struct {
	handle func(eventQueueItem)

	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
}

func newEventQueue(handle func(eventQueueItem)) *eventQueue {
	return &eventQueue{
		handle:  handle,
		queue:   make(chan eventQueueItem, eventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (q *eventQueue) start() {
	q.startOnce.Do(func() {
		go func() {
			defer close(q.done)

			for {
				select {
				case <-q.closeCh:
					return
				case item := <-q.queue:
					if item.barrier != nil {
						close(item.barrier)
						continue
					}
					if q.isClosed() {
						return
					}
					q.handle(item)
				}
			}
		}()
	})
}

// enqueue blocks while the queue is full, which holds back the transport
// read loop rather than dropping events.
func (q *eventQueue) enqueue(epoch uint64, event events.Event) bool {
	if q.isClosed() {
		return false
	}

	item := eventQueueItem{epoch: epoch, event: event, queuedAt: time.Now()}
	select {
	case <-q.closeCh:
		return false
	case q.queue <- item:
		return true
	}
}

// flush waits until everything queued so far has been handled.
func (q *eventQueue) flush() {
	barrier := make(chan struct{})
	select {
	case <-q.closeCh:
		return
	case q.queue <- eventQueueItem{barrier: barrier}:
	}

	select {
	case <-barrier:
	case <-q.done:
	}
}

func (q *eventQueue) end() {
	q.endOnce.Do(func() {
		close(q.closeCh)
	})
}

func (q *eventQueue) waitUntilEnded() {
	q.startOnce.Do(func() { close(q.done) })
	<-q.done
}

func (q *eventQueue) isClosed() bool {
	select {
	case <-q.closeCh:
		return true
	default:
		return false
	}
}
