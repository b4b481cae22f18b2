package events

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"
)

const defaultLogCapacity = 256

// RawEvent is a recorded event with its JSON payload.
type RawEvent struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Log keeps the most recent events in memory. Older events are overwritten
// once capacity is reached.
type Log struct {
	mu     sync.Mutex
	buf    []RawEvent
	next   int
	lastID int64
}

// NewLog creates a log holding up to capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &Log{buf: make([]RawEvent, 0, capacity)}
}

// Append records an event and returns its sequence number.
func (l *Log) Append(e Event) (int64, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	raw := RawEvent{
		ID:         l.lastID,
		EventType:  e.EventType(),
		EntityType: e.EntityType(),
		EntityID:   e.EntityID(),
		Payload:    payload,
		OccurredAt: e.OccurredAt(),
	}
	if len(l.buf) < cap(l.buf) {
		l.buf = append(l.buf, raw)
	} else {
		l.buf[l.next] = raw
	}
	l.next = (l.next + 1) % cap(l.buf)
	return raw.ID, nil
}

// Recent returns up to limit events, newest first, skipping offset events.
// total is the number of events currently held.
func (l *Log) Recent(limit, offset int) (events []RawEvent, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total = len(l.buf)
	offset = max(offset, 0)
	for i := offset; i < total && len(events) < limit; i++ {
		// newest sits just before next
		idx := (l.next - 1 - i + cap(l.buf)) % cap(l.buf)
		events = append(events, l.buf[idx])
	}
	return events, total
}

// ForEntity returns the held events of one entity, oldest first.
func (l *Log) ForEntity(entityType, entityID string) []RawEvent {
	recent, _ := l.Recent(math.MaxInt, 0)
	var out []RawEvent
	for i := len(recent) - 1; i >= 0; i-- {
		if e := recent[i]; e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}
