package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  PENDING is the
// only non-terminal state besides CONFIRMED; REFUSED and CANCELED are final.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationRefused   ReservationStatus = "REFUSED"
	ReservationCanceled  ReservationStatus = "CANCELED"
)

// ActiveStatuses are the statuses that hold seats against an event.
var ActiveStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationRefused, ReservationCanceled:
		return true
	}
	return false
}

// Active reports whether the reservation still counts against capacity.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Terminal reports whether no further transition is defined.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationRefused || s == ReservationCanceled
}

// Reservation is a row of the `reservations` table.
type Reservation struct {
	ID            uint64            `json:"id"`                    // reservations.id
	EventID       uint64            `json:"eventId"`               // reservations.event_id
	UserID        uint64            `json:"userId"`                // reservations.user_id
	NumberOfSeats int               `json:"numberOfSeats"`         // reservations.number_of_seats
	Status        ReservationStatus `json:"status"`                // reservations.status
	CreatedAt     time.Time         `json:"createdAt"`             // reservations.created_at
	UpdatedAt     time.Time         `json:"updatedAt"`             // reservations.updated_at
	ConfirmedAt   *time.Time        `json:"confirmedAt,omitempty"` // reservations.confirmed_at (nullable)
	CanceledAt    *time.Time        `json:"canceledAt,omitempty"`  // reservations.canceled_at (nullable)
}

// ReservationDetail is a reservation joined with the summaries the API shows
// next to it.  Either summary may be nil depending on the listing.
type ReservationDetail struct {
	Reservation
	Event *EventSummary `json:"event,omitempty"`
	User  *UserSummary  `json:"user,omitempty"`
}

// ReservationFilter drives the admin reservation listing.
type ReservationFilter struct {
	Status  ReservationStatus
	EventID uint64
	Page    int
	Limit   int
}
