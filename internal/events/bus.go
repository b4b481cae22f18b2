package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// anyType keys the subscribers that receive every event.
const anyType = "*"

// Bus fans events out to in-process subscribers and records them in an
// optional Log.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event // event type or anyType -> channels
	log    *Log
	logger *slog.Logger
	closed bool
}

// NewBus creates a bus. Pass a nil log to keep no history.
func NewBus(log *Log, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]chan Event),
		log:    log,
		logger: logger,
	}
}

// Log returns the history attached to the bus, or nil.
func (b *Bus) Log() *Log {
	return b.log
}

// Publish records e and hands it to every matching subscriber with room in
// its channel. A full subscriber misses the event; the publisher never
// waits. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(_ context.Context, e Event) error {
	// the read lock is held across delivery so Close cannot close a channel
	// mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	if b.log != nil {
		if _, err := b.log.Append(e); err != nil {
			b.logger.Error("failed to record event", "type", e.EventType(), "error", err)
		}
	}

	b.deliver(e, b.subs[e.EventType()])
	b.deliver(e, b.subs[anyType])
	return nil
}

func (b *Bus) deliver(e Event, chans []chan Event) {
	for _, ch := range chans {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber full, dropping event",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_id", e.EntityID())
		}
	}
}

// Subscribe returns a channel receiving events of one type. On a closed bus
// the channel is already closed.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	return b.subscribe(eventType, bufferSize)
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	return b.subscribe(anyType, bufferSize)
}

func (b *Bus) subscribe(key string, bufferSize int) <-chan Event {
	ch := make(chan Event, bufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[key] = append(b.subs[key], ch)
	return ch
}

// Unsubscribe removes and closes a subscription. Unknown channels are
// ignored.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, chans := range b.subs {
		i := slices.IndexFunc(chans, func(c chan Event) bool { return c == ch })
		if i < 0 {
			continue
		}
		close(chans[i])
		b.subs[key] = slices.Delete(chans, i, i+1)
		return
	}
}

// Close ends every subscription. Later calls do nothing.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = nil
	return nil
}
