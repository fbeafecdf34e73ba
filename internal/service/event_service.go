package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/model"
)

// EventService manages the event catalogue.  Cancellation lives in
// ReservationService because it also cancels reservations.
type EventService struct {
	store  Store
	paging config.PaginationConfig
	now    func() time.Time
}

func NewEventService(store Store, paging config.PaginationConfig) *EventService {
	return &EventService{store: store, paging: paging, now: time.Now}
}

// Create stores a new DRAFT event owned by the caller.
func (s *EventService) Create(ctx context.Context, caller Caller, e model.Event) (*model.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !e.Date.After(s.now()) {
		return nil, apperr.Validation("invalid event", "date must be in the future")
	}
	if e.Capacity < 1 {
		return nil, apperr.Validation("invalid event", "capacity must be at least 1")
	}
	e.Title = strings.TrimSpace(e.Title)
	e.Location = strings.TrimSpace(e.Location)
	e.OwnerID = caller.ID
	e.Status = model.EventDraft
	e.AvailableSeats = e.Capacity
	if err := s.store.Repos().Events.Create(ctx, &e); err != nil {
		return nil, internal(err, "insert event")
	}
	return &e, nil
}

// Get returns an event.  Unpublished events are invisible to non-admins.
func (s *EventService) Get(ctx context.Context, caller Caller, id uint64) (*model.Event, error) {
	e, err := s.store.Repos().Events.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event %d not found", id)
	}
	if !canViewEvent(caller, e) {
		return nil, apperr.NotFound("event %d not found", id)
	}
	return e, nil
}

// List searches events ordered by date.  Non-admins only ever see
// published events, whatever status they ask for.
func (s *EventService) List(ctx context.Context, caller Caller, f model.EventFilter) (EventPage, error) {
	if !caller.IsAdmin() {
		f.Status = model.EventPublished
	} else if f.Status != "" && !f.Status.Valid() {
		return EventPage{}, apperr.Validation("invalid filter", "unknown event status "+string(f.Status))
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Page, f.Limit = normalize(s.paging, f.Page, f.Limit)
	events, total, err := s.store.Repos().Events.Search(ctx, f)
	if err != nil {
		return EventPage{}, internal(err, "search events")
	}
	if events == nil {
		events = []model.Event{}
	}
	return EventPage{Events: events, Total: total, Page: f.Page, TotalPages: totalPages(total, f.Limit)}, nil
}

// Update applies a partial change.  Moving capacity moves availableSeats by
// the same amount; capacity may not drop below the seats already booked.
func (s *EventService) Update(ctx context.Context, caller Caller, id uint64, p model.EventPatch) (*model.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var out *model.Event
	err := s.store.WithTx(ctx, func(r Repos) error {
		e, err := r.Events.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "event %d not found", id)
		}
		if err := requireEventOwner(caller, e); err != nil {
			return err
		}
		if e.Status == model.EventCanceled {
			return apperr.InvalidState("event %d is canceled and can no longer be changed", id)
		}
		if p.Title != nil {
			e.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			e.Description = *p.Description
		}
		if p.Location != nil {
			e.Location = strings.TrimSpace(*p.Location)
		}
		if p.Date != nil {
			if !p.Date.After(s.now()) {
				return apperr.Validation("invalid event", "date must be in the future")
			}
			e.Date = *p.Date
		}
		if p.Capacity != nil {
			capacity := *p.Capacity
			if capacity < 1 {
				return apperr.Validation("invalid event", "capacity must be at least 1")
			}
			if booked := e.BookedSeats(); capacity < booked {
				return apperr.Conflict("capacity %d is below the %d seats already booked", capacity, booked)
			}
			e.AvailableSeats += capacity - e.Capacity
			e.Capacity = capacity
		}
		if err := r.Events.Update(ctx, e); err != nil {
			return internal(err, "update event %d", id)
		}
		e.UpdatedAt = s.now().UTC()
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Publish opens a DRAFT event for reservations.
func (s *EventService) Publish(ctx context.Context, caller Caller, id uint64) (*model.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var out *model.Event
	err := s.store.WithTx(ctx, func(r Repos) error {
		e, err := r.Events.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "event %d not found", id)
		}
		if err := requireEventOwner(caller, e); err != nil {
			return err
		}
		if e.Status != model.EventDraft {
			return apperr.InvalidState("only draft events can be published, event %d is %s", id, e.Status)
		}
		if err := r.Events.SetStatus(ctx, id, model.EventPublished, model.EventDraft); err != nil {
			return internal(err, "publish event %d", id)
		}
		e.Status = model.EventPublished
		e.UpdatedAt = s.now().UTC()
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an event that holds no active reservations, together with
// its reservation history.
func (s *EventService) Delete(ctx context.Context, caller Caller, id uint64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(r Repos) error {
		e, err := r.Events.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "event %d not found", id)
		}
		if err := requireEventOwner(caller, e); err != nil {
			return err
		}
		n, err := r.Reservations.CountActiveByEvent(ctx, id)
		if err != nil {
			return internal(err, "count reservations of event %d", id)
		}
		if n > 0 {
			return apperr.Conflict("event %d still has %d active reservations", id, n)
		}
		if err := r.Reservations.DeleteByEvent(ctx, id); err != nil {
			return internal(err, "delete reservations of event %d", id)
		}
		if err := r.Events.Delete(ctx, id); err != nil {
			return storeErr(err, "event %d not found", id)
		}
		return nil
	})
}

// Reservations lists every reservation of one of the caller's events.
func (s *EventService) Reservations(ctx context.Context, caller Caller, id uint64) ([]model.ReservationDetail, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	e, err := repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event %d not found", id)
	}
	if err := requireEventOwner(caller, e); err != nil {
		return nil, err
	}
	out, err := repos.Reservations.ListByEvent(ctx, id)
	if err != nil {
		return nil, internal(err, "list reservations of event %d", id)
	}
	if out == nil {
		out = []model.ReservationDetail{}
	}
	return out, nil
}

// Dashboard aggregates the caller's events.  upcomingEvents counts every
// published future event.
func (s *EventService) Dashboard(ctx context.Context, caller Caller) (model.DashboardStats, error) {
	if err := requireAdmin(caller); err != nil {
		return model.DashboardStats{}, err
	}
	repos := s.store.Repos()

	counts, err := repos.Events.StatusCounts(ctx, caller.ID)
	if err != nil {
		return model.DashboardStats{}, internal(err, "count events")
	}
	stats := model.DashboardStats{StatusDistribution: map[model.EventStatus]int64{
		model.EventDraft: 0, model.EventPublished: 0, model.EventCanceled: 0,
	}}
	for status, n := range counts {
		stats.StatusDistribution[status] = n
		stats.TotalEvents += n
	}
	if stats.UpcomingEvents, err = repos.Events.CountUpcoming(ctx, s.now()); err != nil {
		return model.DashboardStats{}, internal(err, "count upcoming events")
	}
	if stats.TotalReservations, err = repos.Reservations.CountByOwner(ctx, caller.ID); err != nil {
		return model.DashboardStats{}, internal(err, "count reservations")
	}
	samples, err := repos.Events.FillSamples(ctx, caller.ID)
	if err != nil {
		return model.DashboardStats{}, internal(err, "load fill rates")
	}
	stats.AvgFillRate = AverageFillRate(samples)
	return stats, nil
}

// AverageFillRate is the mean booked percentage over samples, rounded to two
// decimals.  No samples means 0.
func AverageFillRate(samples []model.FillSample) float64 {
	sum := decimal.Zero
	n := 0
	for _, s := range samples {
		if s.Capacity <= 0 {
			continue
		}
		booked := decimal.NewFromInt(int64(s.Capacity - s.AvailableSeats))
		sum = sum.Add(booked.Div(decimal.NewFromInt(int64(s.Capacity))).Mul(decimal.NewFromInt(100)))
		n++
	}
	if n == 0 {
		return 0
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(n))).Round(2).Float64()
	return avg
}
