package domain

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending       BookingStatus = "PENDING"
	StatusConfirmed     BookingStatus = "CONFIRMED"
	StatusClientArrived BookingStatus = "CLIENT_ARRIVED"
	StatusInProgress    BookingStatus = "IN_PROGRESS"
	StatusCompleted     BookingStatus = "COMPLETED"
	StatusNoShow        BookingStatus = "NO_SHOW"
	StatusCancelled     BookingStatus = "CANCELLED"
)

// nextStatuses maps each status to the statuses it may legally move to.
// Terminal states have no entries.
var nextStatuses = map[BookingStatus][]BookingStatus{
	StatusPending:       {StatusConfirmed, StatusNoShow, StatusCancelled},
	StatusConfirmed:     {StatusClientArrived, StatusNoShow, StatusCancelled},
	StatusClientArrived: {StatusInProgress, StatusNoShow, StatusCancelled},
	StatusInProgress:    {StatusCompleted, StatusNoShow, StatusCancelled},
}

// IsTerminal reports whether no further transitions are permitted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// ValidTransition reports whether moving a booking from one status to
// another follows the canonical lifecycle. The machine is advisory: an
// upstream event that violates it is still applied, but subscribers flag
// the transition as a possible upstream defect.
func ValidTransition(from, to BookingStatus) bool {
	if from == to {
		return true
	}
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}
