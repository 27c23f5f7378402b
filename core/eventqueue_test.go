package avatar

import (
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/events"
)

func TestEventQueueStampsAndOrdersItems(t *testing.T) {
	var handled []eventQueueItem
	queue := newEventQueue(func(item eventQueueItem) {
		handled = append(handled, item)
	})
	queue.start()
	defer func() {
		queue.end()
		queue.waitUntilEnded()
	}()

	before := time.Now()
	if !queue.enqueue(1, events.NewEstablished()) {
		t.Fatalf("expected enqueue to succeed")
	}
	if !queue.enqueue(1, events.NewLost("bye")) {
		t.Fatalf("expected enqueue to succeed")
	}
	queue.flush()

	if len(handled) != 2 {
		t.Fatalf("expected 2 handled items, got %d", len(handled))
	}
	if handled[0].event.Kind() != events.NewEstablished().Kind() || handled[1].event.Kind() != events.NewLost("").Kind() {
		t.Fatalf("expected items in queue order, got %s then %s", handled[0].event.Kind(), handled[1].event.Kind())
	}
	for _, item := range handled {
		if item.queuedAt.IsZero() || item.queuedAt.Before(before) {
			t.Fatalf("expected queuedAt to be stamped at enqueue, got %v", item.queuedAt)
		}
		if item.epoch != 1 {
			t.Fatalf("expected epoch 1, got %d", item.epoch)
		}
	}
}

func TestEventQueueRejectsAfterEnd(t *testing.T) {
	queue := newEventQueue(func(eventQueueItem) {})
	queue.start()
	queue.end()
	queue.waitUntilEnded()

	if queue.enqueue(1, events.NewEstablished()) {
		t.Fatalf("expected enqueue to fail once the queue has ended")
	}
}
