package domain

import "time"

// BookingRecord mirrors a booking owned by the upstream booking system.
// This core only observes records; it never creates or stores them.
type BookingRecord struct {
	ID              string        `json:"id"`
	TenantSlug      string        `json:"tenant_slug"`
	AssignedStaffID string        `json:"assigned_staff_id"`
	Status          BookingStatus `json:"status"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	ClientRef       string        `json:"client_ref,omitempty"`
}

// EventType classifies a booking mutation.
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventCancelled     EventType = "cancelled"
)

// WireName is the named event sent over the real-time channel.
func (t EventType) WireName() string {
	return "booking:" + string(t)
}

// ParseEventName maps a wire event name back to its EventType.
func ParseEventName(name string) (EventType, bool) {
	switch name {
	case "booking:created":
		return EventCreated, true
	case "booking:updated":
		return EventUpdated, true
	case "booking:status_changed":
		return EventStatusChanged, true
	case "booking:cancelled":
		return EventCancelled, true
	}
	return "", false
}

// BookingEvent is produced once per mutation by the upstream booking system
// and consumed at-least-once by each subscribed session.
type BookingEvent struct {
	Type       EventType     `json:"type"`
	TenantSlug string        `json:"tenant_slug"`
	Booking    BookingRecord `json:"booking"`
}
