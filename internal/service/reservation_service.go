package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/ticket"
)

// ReservationService is the reservation workflow.  Every operation that
// touches both stores runs in one transaction, locking the event row before
// the reservation row.
type ReservationService struct {
	store    Store
	dispatch *Dispatcher
	paging   config.PaginationConfig
	now      func() time.Time
}

func NewReservationService(store Store, dispatch *Dispatcher, paging config.PaginationConfig) *ReservationService {
	return &ReservationService{store: store, dispatch: dispatch, paging: paging, now: time.Now}
}

// Create books seats for the caller on a published event.
func (s *ReservationService) Create(ctx context.Context, caller Caller, eventID uint64, seats int) (*model.Reservation, error) {
	if seats < 1 {
		return nil, apperr.Validation("invalid reservation", "numberOfSeats must be at least 1")
	}
	var (
		res model.Reservation
		ev  model.Event
	)
	err := s.store.WithTx(ctx, func(r Repos) error {
		e, err := r.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return storeErr(err, "event %d not found", eventID)
		}
		if e.Status != model.EventPublished {
			return apperr.InvalidState("event %d is not open for reservations", eventID)
		}
		if e.AvailableSeats < seats {
			return apperr.Conflict("only %d seats left for event %d", e.AvailableSeats, eventID)
		}
		active, err := r.Reservations.HasActive(ctx, caller.ID, eventID)
		if err != nil {
			return internal(err, "check active reservation")
		}
		if active {
			return apperr.Conflict("you already hold an active reservation for event %d", eventID)
		}
		ok, err := r.Events.DecrementSeats(ctx, eventID, seats)
		if err != nil {
			return internal(err, "take %d seats", seats)
		}
		if !ok {
			return apperr.Conflict("not enough seats left for event %d", eventID)
		}
		res = model.Reservation{EventID: eventID, UserID: caller.ID, NumberOfSeats: seats, Status: model.ReservationPending}
		if err := r.Reservations.Create(ctx, &res); err != nil {
			if errors.Is(err, repository.ErrDuplicateActive) {
				return apperr.Conflict("you already hold an active reservation for event %d", eventID)
			}
			return internal(err, "insert reservation")
		}
		ev = *e
		ev.AvailableSeats -= seats
		return nil
	})
	track("create", err)
	if err != nil {
		return nil, err
	}
	metrics.SeatsTaken(seats)
	s.notify(queue.ReservationPending, res, ev)
	return &res, nil
}

// transition describes one reservation status change.
type transition struct {
	op      string
	to      model.ReservationStatus
	from    []model.ReservationStatus
	restore bool
	notify  queue.NotificationType
	// check runs against the unlocked row before any lock is taken.
	check func(Caller, *model.Reservation) error
}

func (s *ReservationService) Confirm(ctx context.Context, caller Caller, id uint64) (*model.Reservation, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.apply(ctx, caller, id, transition{
		op:     "confirm",
		to:     model.ReservationConfirmed,
		from:   []model.ReservationStatus{model.ReservationPending},
		notify: queue.ReservationConfirmed,
	})
}

func (s *ReservationService) Refuse(ctx context.Context, caller Caller, id uint64) (*model.Reservation, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.apply(ctx, caller, id, transition{
		op:      "refuse",
		to:      model.ReservationRefused,
		from:    []model.ReservationStatus{model.ReservationPending},
		restore: true,
		notify:  queue.ReservationRefused,
	})
}

// CancelByUser cancels one of the caller's own active reservations.
func (s *ReservationService) CancelByUser(ctx context.Context, caller Caller, id uint64) (*model.Reservation, error) {
	return s.apply(ctx, caller, id, transition{
		op:      "cancel",
		to:      model.ReservationCanceled,
		from:    model.ActiveStatuses,
		restore: true,
		notify:  queue.ReservationCanceled,
		check:   requireReservationOwner,
	})
}

// CancelByAdmin cancels any active reservation.
func (s *ReservationService) CancelByAdmin(ctx context.Context, caller Caller, id uint64) (*model.Reservation, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.apply(ctx, caller, id, transition{
		op:      "admin_cancel",
		to:      model.ReservationCanceled,
		from:    model.ActiveStatuses,
		restore: true,
		notify:  queue.ReservationCanceled,
	})
}

func (s *ReservationService) apply(ctx context.Context, caller Caller, id uint64, t transition) (*model.Reservation, error) {
	now := s.now().UTC()
	var (
		res *model.Reservation
		ev  model.Event
	)
	err := s.store.WithTx(ctx, func(r Repos) error {
		// Unlocked read to learn the event: locks are always taken event first.
		cur, err := r.Reservations.GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "reservation %d not found", id)
		}
		if t.check != nil {
			if err := t.check(caller, cur); err != nil {
				return err
			}
		}
		e, err := r.Events.GetForUpdate(ctx, cur.EventID)
		if err != nil {
			return storeErr(err, "event %d not found", cur.EventID)
		}
		locked, err := r.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "reservation %d not found", id)
		}
		if locked.Status.Terminal() {
			return apperr.InvalidState("reservation %d is already %s", id, locked.Status)
		}
		if !slices.Contains(t.from, locked.Status) {
			return apperr.InvalidState("reservation %d is %s and cannot be %s", id, locked.Status, t.to)
		}
		ok, err := r.Reservations.Transition(ctx, id, t.to, now, t.from...)
		if err != nil {
			return internal(err, "set reservation %d to %s", id, t.to)
		}
		if !ok {
			return apperr.InvalidState("reservation %d changed concurrently", id)
		}
		if t.restore {
			if err := r.Events.IncrementSeats(ctx, e.ID, locked.NumberOfSeats); err != nil {
				return internal(err, "restore seats")
			}
			e.AvailableSeats += locked.NumberOfSeats
		}

		locked.Status = t.to
		locked.UpdatedAt = now
		switch t.to {
		case model.ReservationConfirmed:
			locked.ConfirmedAt = &now
		case model.ReservationCanceled:
			locked.CanceledAt = &now
		}
		res, ev = locked, *e
		return nil
	})
	track(t.op, err)
	if err != nil {
		return nil, err
	}
	if t.restore {
		metrics.SeatsReturned(res.NumberOfSeats)
	}
	s.notify(t.notify, *res, ev)
	return res, nil
}

// CancelEvent cancels the event and every active reservation on it.  Seats
// are not given back: a canceled event accepts no further bookings.
func (s *ReservationService) CancelEvent(ctx context.Context, caller Caller, eventID uint64) (*model.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var (
		ev       *model.Event
		canceled []model.Reservation
	)
	err := s.store.WithTx(ctx, func(r Repos) error {
		e, err := r.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return storeErr(err, "event %d not found", eventID)
		}
		if err := requireEventOwner(caller, e); err != nil {
			return err
		}
		if e.Status == model.EventCanceled {
			return apperr.InvalidState("event %d is already canceled", eventID)
		}
		locked, err := r.Reservations.ListActiveByEventForUpdate(ctx, eventID)
		if err != nil {
			return internal(err, "lock reservations of event %d", eventID)
		}
		active := slices.DeleteFunc(locked, func(res model.Reservation) bool { return !res.Status.Active() })
		if err := r.Events.SetStatus(ctx, eventID, model.EventCanceled, model.EventDraft, model.EventPublished); err != nil {
			return internal(err, "cancel event %d", eventID)
		}
		n, err := r.Reservations.CancelActiveByEvent(ctx, eventID, now)
		if err != nil {
			return internal(err, "cancel reservations of event %d", eventID)
		}
		if int(n) != len(active) {
			return apperr.Internal(fmt.Errorf("canceled %d reservations, expected %d", n, len(active)), "store failure")
		}
		e.Status = model.EventCanceled
		e.UpdatedAt = now
		for i := range active {
			active[i].Status = model.ReservationCanceled
			active[i].CanceledAt = &now
			active[i].UpdatedAt = now
		}
		ev, canceled = e, active
		return nil
	})
	track("cancel_event", err)
	if err != nil {
		return nil, err
	}
	if len(canceled) > 0 {
		snapshot := *ev
		s.dispatch.Go(queue.EventCanceled, func(ctx context.Context) ([]queue.Notification, error) {
			users := s.store.Repos().Users
			out := make([]queue.Notification, 0, len(canceled))
			var errs []error
			for _, res := range canceled {
				u, err := users.GetByID(ctx, res.UserID)
				if err != nil {
					errs = append(errs, fmt.Errorf("load user %d: %w", res.UserID, err))
					continue
				}
				out = append(out, queue.NewNotification(queue.EventCanceled, u, res, snapshot))
			}
			return out, errors.Join(errs...)
		})
	}
	return ev, nil
}

// Get returns a reservation to its owner or to an admin.
func (s *ReservationService) Get(ctx context.Context, caller Caller, id uint64) (*model.ReservationDetail, error) {
	d, err := s.store.Repos().Reservations.GetDetail(ctx, id)
	if err != nil {
		return nil, storeErr(err, "reservation %d not found", id)
	}
	if !caller.IsAdmin() {
		if err := requireReservationOwner(caller, &d.Reservation); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ListMine returns the caller's reservations, newest first.
func (s *ReservationService) ListMine(ctx context.Context, caller Caller) ([]model.ReservationDetail, error) {
	out, err := s.store.Repos().Reservations.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, internal(err, "list reservations of user %d", caller.ID)
	}
	if out == nil {
		out = []model.ReservationDetail{}
	}
	return out, nil
}

// List is the paginated admin listing.
func (s *ReservationService) List(ctx context.Context, caller Caller, f model.ReservationFilter) (ReservationPage, error) {
	if err := requireAdmin(caller); err != nil {
		return ReservationPage{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return ReservationPage{}, apperr.Validation("invalid filter", fmt.Sprintf("unknown reservation status %q", f.Status))
	}
	f.Page, f.Limit = normalize(s.paging, f.Page, f.Limit)
	items, total, err := s.store.Repos().Reservations.List(ctx, f)
	if err != nil {
		return ReservationPage{}, internal(err, "list reservations")
	}
	if items == nil {
		items = []model.ReservationDetail{}
	}
	return ReservationPage{Reservations: items, Total: total, Page: f.Page, TotalPages: totalPages(total, f.Limit)}, nil
}

// TicketPDF renders the ticket of one of the caller's confirmed
// reservations.
func (s *ReservationService) TicketPDF(ctx context.Context, caller Caller, id uint64) ([]byte, error) {
	d, err := s.store.Repos().Reservations.GetDetail(ctx, id)
	if err != nil {
		return nil, storeErr(err, "reservation %d not found", id)
	}
	if err := requireReservationOwner(caller, &d.Reservation); err != nil {
		return nil, err
	}
	if d.Status != model.ReservationConfirmed {
		return nil, apperr.Forbidden("tickets are only issued for confirmed reservations")
	}
	pdf, err := ticket.Render(*d)
	if err != nil {
		return nil, apperr.Internal(err, "ticket rendering failed")
	}
	return pdf, nil
}

func (s *ReservationService) notify(kind queue.NotificationType, res model.Reservation, ev model.Event) {
	s.dispatch.Go(kind, func(ctx context.Context) ([]queue.Notification, error) {
		u, err := s.store.Repos().Users.GetByID(ctx, res.UserID)
		if err != nil {
			return nil, fmt.Errorf("load user %d: %w", res.UserID, err)
		}
		return []queue.Notification{queue.NewNotification(kind, u, res, ev)}, nil
	})
}

// track labels business rejections by kind so dashboards can tell a sold
// out event from a failing database.
func track(op string, err error) {
	switch {
	case err == nil:
		metrics.TrackTransition(op, metrics.ResultOK)
	case errors.Is(err, apperr.ErrConflict):
		metrics.TrackTransition(op, "conflict")
	case errors.Is(err, apperr.ErrInvalidState):
		metrics.TrackTransition(op, "invalid_state")
	case errors.Is(err, apperr.ErrNotFound):
		metrics.TrackTransition(op, "not_found")
	case errors.Is(err, apperr.ErrForbidden):
		metrics.TrackTransition(op, "forbidden")
	default:
		metrics.TrackTransition(op, metrics.ResultError)
	}
}
