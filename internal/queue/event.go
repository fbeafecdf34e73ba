// Package queue defines the notification messages exchanged over RabbitMQ,
// the publisher used by the API and the consumer run by the worker.
package queue

import (
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// NotificationType selects the email template rendered by the worker.
type NotificationType string

const (
	ReservationPending   NotificationType = "reservation.pending"
	ReservationConfirmed NotificationType = "reservation.confirmed"
	ReservationRefused   NotificationType = "reservation.refused"
	ReservationCanceled  NotificationType = "reservation.canceled"
	EventCanceled        NotificationType = "event.canceled"
)

// Notification carries everything the worker needs to render and send an
// email without querying the primary database.
type Notification struct {
	Type          NotificationType        `json:"type"`
	ReservationID uint64                  `json:"reservation_id"`
	Status        model.ReservationStatus `json:"status"`
	NumberOfSeats int                     `json:"number_of_seats"`
	UserID        uint64                  `json:"user_id"`
	Email         string                  `json:"email"`
	FirstName     string                  `json:"first_name"`
	LastName      string                  `json:"last_name"`
	EventID       uint64                  `json:"event_id"`
	EventTitle    string                  `json:"event_title"`
	EventDate     time.Time               `json:"event_date"`
	EventLocation string                  `json:"event_location"`
	ConfirmedAt   *time.Time              `json:"confirmed_at,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// NewNotification assembles a message from the rows involved.
func NewNotification(kind NotificationType, u model.User, r model.Reservation, e model.Event) Notification {
	return Notification{
		Type:          kind,
		ReservationID: r.ID,
		Status:        r.Status,
		NumberOfSeats: r.NumberOfSeats,
		UserID:        u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EventID:       e.ID,
		EventTitle:    e.Title,
		EventDate:     e.Date,
		EventLocation: e.Location,
		ConfirmedAt:   r.ConfirmedAt,
		OccurredAt:    time.Now().UTC(),
	}
}

// Detail rebuilds the reservation view used to render a ticket.
func (n Notification) Detail() model.ReservationDetail {
	return model.ReservationDetail{
		Reservation: model.Reservation{
			ID:            n.ReservationID,
			EventID:       n.EventID,
			UserID:        n.UserID,
			NumberOfSeats: n.NumberOfSeats,
			Status:        n.Status,
			ConfirmedAt:   n.ConfirmedAt,
		},
		Event: &model.EventSummary{ID: n.EventID, Title: n.EventTitle, Date: n.EventDate, Location: n.EventLocation},
		User:  &model.UserSummary{ID: n.UserID, Email: n.Email, FirstName: n.FirstName, LastName: n.LastName},
	}
}
