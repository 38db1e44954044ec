package batch

import (
	"sync"
	"time"
)

// EventType classifies messages emitted during a batch run.
type EventType string

const (
	// EventTypeProgress carries a human-readable progress message.
	EventTypeProgress EventType = "progress"
	// EventTypeFile reports one file finishing, with its success flag.
	EventTypeFile EventType = "file"
	// EventTypeBatch marks the end of a batch. Emitted exactly once per run.
	EventTypeBatch EventType = "batch"
	// EventTypeError reports a per-file or batch-level failure message.
	EventTypeError EventType = "error"
)

// Event is a sequenced payload consumed by CLI and HTTP subscribers.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Message   string    `json:"message,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Success   bool      `json:"success,omitempty"`
}

// EventBus stores recent events for incremental reads and fans them out to
// channel subscribers. Delivery is fire-and-forget: a subscriber that falls
// behind loses events instead of blocking the publisher.
type EventBus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	subscribers map[int]chan Event
	nextSubID   int
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[int]chan Event),
	}
}

// Publish appends one event, assigns sequence and timestamp, and notifies
// subscribers without blocking. The fan-out happens under the same lock
// that guards unsubscribe, so a send can never race a channel close.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers a buffered channel receiving future events. The second
// return value unsubscribes and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Event, buffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}
