package service

import (
	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/model"
)

// Caller is the authenticated principal of a request.  The zero value is an
// anonymous visitor.
type Caller struct {
	ID   uint64
	Role string
}

func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

func requireAdmin(c Caller) error {
	if !c.IsAdmin() {
		return apperr.Forbidden("administrator role required")
	}
	return nil
}

// requireEventOwner gates every event mutation: admin role and ownership.
func requireEventOwner(c Caller, e *model.Event) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if e.OwnerID != c.ID {
		return apperr.Forbidden("only the event owner may change event %d", e.ID)
	}
	return nil
}

// canViewEvent hides unpublished events from everyone but admins.
func canViewEvent(c Caller, e *model.Event) bool {
	return e.Status == model.EventPublished || c.IsAdmin()
}

func requireReservationOwner(c Caller, r *model.Reservation) error {
	if r.UserID != c.ID {
		return apperr.Forbidden("reservation %d belongs to another user", r.ID)
	}
	return nil
}
