// Package events broadcasts catalog and reservation changes to in-process
// subscribers and keeps a short history of them.
package events

import "time"

// Event types.
const (
	TypeSnapshotPublished = "snapshot.published"
	TypeSeatsReserved     = "seats.reserved"
)

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	EntityType() string // "snapshot", "session"
	EntityID() string
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity_type"`
	ID        string    `json:"entity_id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EntityType() string    { return e.Entity }
func (e BaseEvent) EntityID() string      { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, entityType, entityID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Entity:    entityType,
		ID:        entityID,
		Timestamp: time.Now().UTC(),
	}
}

// SnapshotPublished is emitted after a refresh episode replaces a snapshot.
// The entity id is the job name.
type SnapshotPublished struct {
	BaseEvent
	Entries int `json:"entries"`
	Failed  int `json:"failed"`
}

// NewSnapshotPublished creates a SnapshotPublished event for job.
func NewSnapshotPublished(job string, entries, failed int) *SnapshotPublished {
	return &SnapshotPublished{
		BaseEvent: NewBaseEvent(TypeSnapshotPublished, "snapshot", job),
		Entries:   entries,
		Failed:    failed,
	}
}

// SeatsReserved is emitted for every accepted reservation. The entity id is
// the session id.
type SeatsReserved struct {
	BaseEvent
	ReservationID string   `json:"reservation_id"`
	Seats         []string `json:"seats"`
}

// NewSeatsReserved creates a SeatsReserved event.
func NewSeatsReserved(sessionID, reservationID string, seats []string) *SeatsReserved {
	return &SeatsReserved{
		BaseEvent:     NewBaseEvent(TypeSeatsReserved, "session", sessionID),
		ReservationID: reservationID,
		Seats:         seats,
	}
}
