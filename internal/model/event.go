package model

import "time"

// EventStatus is the lifecycle state of an event.  Transitions only move
// forward: DRAFT -> PUBLISHED -> CANCELED, with DRAFT -> CANCELED allowed.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCanceled  EventStatus = "CANCELED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCanceled:
		return true
	}
	return false
}

// Event is a row of the `events` table.
//
// AvailableSeats always equals Capacity minus the seats held by active
// reservations, except after cancellation where seats are left as they were.
type Event struct {
	ID             uint64      `json:"id"`             // events.id
	Title          string      `json:"title"`          // events.title
	Description    string      `json:"description"`    // events.description
	Date           time.Time   `json:"date"`           // events.date
	Location       string      `json:"location"`       // events.location
	Capacity       int         `json:"capacity"`       // events.capacity
	AvailableSeats int         `json:"availableSeats"` // events.available_seats
	Status         EventStatus `json:"status"`         // events.status
	OwnerID        uint64      `json:"ownerId"`        // events.owner_id
	CreatedAt      time.Time   `json:"createdAt"`      // events.created_at
	UpdatedAt      time.Time   `json:"updatedAt"`      // events.updated_at
}

// BookedSeats is the number of seats currently held by active reservations.
func (e Event) BookedSeats() int { return e.Capacity - e.AvailableSeats }

// EventSummary is embedded in reservation listings.
type EventSummary struct {
	ID       uint64      `json:"id"`
	Title    string      `json:"title"`
	Date     time.Time   `json:"date"`
	Location string      `json:"location"`
	Status   EventStatus `json:"status"`
}

// EventFilter drives the paginated event search.
type EventFilter struct {
	Search   string
	FromDate *time.Time
	Status   EventStatus
	Page     int
	Limit    int
}

// EventPatch carries a partial event update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Capacity    *int
}

// DashboardStats is the aggregate view shown on the admin dashboard.
type DashboardStats struct {
	TotalEvents        int64                 `json:"totalEvents"`
	UpcomingEvents     int64                 `json:"upcomingEvents"`
	TotalReservations  int64                 `json:"totalReservations"`
	AvgFillRate        float64               `json:"avgFillRate"`
	StatusDistribution map[EventStatus]int64 `json:"statusDistribution"`
}

// FillSample is the capacity/available pair used to compute fill rates.
type FillSample struct {
	Capacity       int
	AvailableSeats int
}
