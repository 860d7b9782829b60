package kiosk

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/session"
)

// DefaultQueueSize is the number of keys buffered between ticks
const DefaultQueueSize = 16

// Source yields at most one pending key event per call
type Source interface {
	Poll() (session.Event, bool)
}

// Queue is a bounded, concurrency-safe key Source
type Queue struct {
	clock  clockwork.Clock
	events chan session.Event
}

// NewQueue creates a queue stamping events with clock
func NewQueue(clock clockwork.Clock, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{clock: clock, events: make(chan session.Event, size)}
}

// Push enqueues k stamped with the current time. It reports false and drops
// the key when the queue is full.
func (q *Queue) Push(k session.Key) bool {
	select {
	case q.events <- session.KeyEvent(k, q.clock.Now()):
		return true
	default:
		logging.Warn("Key queue full, dropping key", zap.String("key", k.String()))
		return false
	}
}

// PushName parses a key name with session.ParseKey and enqueues it
func (q *Queue) PushName(name string) bool {
	k, ok := session.ParseKey(name)
	if !ok {
		return false
	}
	return q.Push(k)
}

// Poll returns the oldest pending event
func (q *Queue) Poll() (session.Event, bool) {
	select {
	case ev := <-q.events:
		return ev, true
	default:
		return session.NoEvent, false
	}
}

// Len returns the number of pending events
func (q *Queue) Len() int {
	return len(q.events)
}
