package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// memStore is a serialisable in-memory Store: WithTx holds the store mutex
// for the whole callback and restores a snapshot when the callback fails.
type memStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	events       map[uint64]model.Event
	reservations map[uint64]model.Reservation
	users        map[uint64]model.User
	nextEvent    uint64
	nextRes      uint64
	clock        time.Time
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		events:       map[uint64]model.Event{},
		reservations: map[uint64]model.Reservation{},
		users:        map[uint64]model.User{},
		clock:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func (d *memData) clone() *memData {
	c := *d
	c.events = make(map[uint64]model.Event, len(d.events))
	for k, v := range d.events {
		c.events[k] = v
	}
	c.reservations = make(map[uint64]model.Reservation, len(d.reservations))
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	c.users = make(map[uint64]model.User, len(d.users))
	for k, v := range d.users {
		c.users[k] = v
	}
	return &c
}

// tick returns a strictly increasing timestamp so "newest first" ordering is
// deterministic.
func (d *memData) tick() time.Time {
	d.clock = d.clock.Add(time.Second)
	return d.clock
}

func (s *memStore) Repos() Repos { return s.repos(false) }

func (s *memStore) WithTx(ctx context.Context, fn func(Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) repos(inTx bool) Repos {
	r := memRepo{s: s, inTx: inTx}
	return Repos{Events: memEvents{r}, Reservations: memReservations{r}, Users: memUsers{r}}
}

type memRepo struct {
	s    *memStore
	inTx bool
}

func (r memRepo) do(f func(d *memData)) {
	if !r.inTx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	f(r.s.data)
}

// seed helpers, used outside transactions.

func (s *memStore) addUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
	return u
}

func (s *memStore) addEvent(e model.Event) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.nextEvent++
	e.ID = s.data.nextEvent
	if e.AvailableSeats == 0 && e.Status != model.EventCanceled {
		e.AvailableSeats = e.Capacity
	}
	e.CreatedAt = s.data.tick()
	e.UpdatedAt = e.CreatedAt
	s.data.events[e.ID] = e
	return e
}

func (s *memStore) event(id uint64) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.events[id]
}

func (s *memStore) reservation(id uint64) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.reservations[id]
}

func (s *memStore) activeSeats(eventID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.data.reservations {
		if r.EventID == eventID && r.Status.Active() {
			n += r.NumberOfSeats
		}
	}
	return n
}

// events

type memEvents struct{ memRepo }

func (r memEvents) Create(_ context.Context, e *model.Event) error {
	r.do(func(d *memData) {
		d.nextEvent++
		e.ID = d.nextEvent
		e.AvailableSeats = e.Capacity
		e.CreatedAt = d.tick()
		e.UpdatedAt = e.CreatedAt
		d.events[e.ID] = *e
	})
	return nil
}

func (r memEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	var (
		e  model.Event
		ok bool
	)
	r.do(func(d *memData) { e, ok = d.events[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	return r.GetByID(ctx, id)
}

func (r memEvents) Update(_ context.Context, e *model.Event) error {
	var err error
	r.do(func(d *memData) {
		cur, ok := d.events[e.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		cur.Title, cur.Description, cur.Date, cur.Location = e.Title, e.Description, e.Date, e.Location
		cur.Capacity, cur.AvailableSeats = e.Capacity, e.AvailableSeats
		cur.UpdatedAt = d.tick()
		d.events[e.ID] = cur
	})
	return err
}

func (r memEvents) SetStatus(_ context.Context, id uint64, status model.EventStatus, from ...model.EventStatus) error {
	err := repository.ErrNotFound
	r.do(func(d *memData) {
		e, ok := d.events[id]
		if !ok || !slices.Contains(from, e.Status) {
			return
		}
		e.Status = status
		e.UpdatedAt = d.tick()
		d.events[id] = e
		err = nil
	})
	return err
}

func (r memEvents) DecrementSeats(_ context.Context, id uint64, n int) (bool, error) {
	ok := false
	r.do(func(d *memData) {
		e, found := d.events[id]
		if !found || e.Status != model.EventPublished || e.AvailableSeats < n {
			return
		}
		e.AvailableSeats -= n
		d.events[id] = e
		ok = true
	})
	return ok, nil
}

func (r memEvents) IncrementSeats(_ context.Context, id uint64, n int) error {
	var err error
	r.do(func(d *memData) {
		e, ok := d.events[id]
		if !ok || e.AvailableSeats+n > e.Capacity {
			err = fmt.Errorf("restore %d seats on event %d: would exceed capacity", n, id)
			return
		}
		e.AvailableSeats += n
		d.events[id] = e
	})
	return err
}

func (r memEvents) Delete(_ context.Context, id uint64) error {
	var err error
	r.do(func(d *memData) {
		if _, ok := d.events[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(d.events, id)
	})
	return err
}

func (r memEvents) Search(_ context.Context, f model.EventFilter) ([]model.Event, int64, error) {
	var matched []model.Event
	r.do(func(d *memData) {
		for _, e := range d.events {
			if f.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Search)) {
				continue
			}
			if f.FromDate != nil && e.Date.Before(*f.FromDate) {
				continue
			}
			if f.Status != "" && e.Status != f.Status {
				continue
			}
			matched = append(matched, e)
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r memEvents) StatusCounts(_ context.Context, ownerID uint64) (map[model.EventStatus]int64, error) {
	out := map[model.EventStatus]int64{}
	r.do(func(d *memData) {
		for _, e := range d.events {
			if e.OwnerID == ownerID {
				out[e.Status]++
			}
		}
	})
	return out, nil
}

func (r memEvents) CountUpcoming(_ context.Context, now time.Time) (int64, error) {
	var n int64
	r.do(func(d *memData) {
		for _, e := range d.events {
			if e.Status == model.EventPublished && !e.Date.Before(now) {
				n++
			}
		}
	})
	return n, nil
}

func (r memEvents) FillSamples(_ context.Context, ownerID uint64) ([]model.FillSample, error) {
	var out []model.FillSample
	r.do(func(d *memData) {
		for _, e := range d.events {
			if e.OwnerID == ownerID && e.Status == model.EventPublished {
				out = append(out, model.FillSample{Capacity: e.Capacity, AvailableSeats: e.AvailableSeats})
			}
		}
	})
	return out, nil
}

// reservations

type memReservations struct{ memRepo }

func (r memReservations) Create(_ context.Context, res *model.Reservation) error {
	var err error
	r.do(func(d *memData) {
		for _, other := range d.reservations {
			if other.UserID == res.UserID && other.EventID == res.EventID && other.Status.Active() {
				err = repository.ErrDuplicateActive
				return
			}
		}
		d.nextRes++
		res.ID = d.nextRes
		res.CreatedAt = d.tick()
		res.UpdatedAt = res.CreatedAt
		d.reservations[res.ID] = *res
	})
	return err
}

func (r memReservations) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	var (
		res model.Reservation
		ok  bool
	)
	r.do(func(d *memData) { res, ok = d.reservations[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &res, nil
}

func (r memReservations) GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r memReservations) HasActive(_ context.Context, userID, eventID uint64) (bool, error) {
	found := false
	r.do(func(d *memData) {
		for _, res := range d.reservations {
			if res.UserID == userID && res.EventID == eventID && res.Status.Active() {
				found = true
			}
		}
	})
	return found, nil
}

func (r memReservations) Transition(_ context.Context, id uint64, to model.ReservationStatus, at time.Time, from ...model.ReservationStatus) (bool, error) {
	ok := false
	r.do(func(d *memData) {
		res, found := d.reservations[id]
		if !found || !slices.Contains(from, res.Status) {
			return
		}
		res.Status = to
		res.UpdatedAt = at
		switch to {
		case model.ReservationConfirmed:
			res.ConfirmedAt = &at
		case model.ReservationCanceled:
			res.CanceledAt = &at
		}
		d.reservations[id] = res
		ok = true
	})
	return ok, nil
}

func (r memReservations) ListActiveByEventForUpdate(_ context.Context, eventID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	r.do(func(d *memData) {
		for _, res := range d.reservations {
			if res.EventID == eventID && res.Status.Active() {
				out = append(out, res)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memReservations) CancelActiveByEvent(_ context.Context, eventID uint64, at time.Time) (int64, error) {
	var n int64
	r.do(func(d *memData) {
		for id, res := range d.reservations {
			if res.EventID == eventID && res.Status.Active() {
				res.Status = model.ReservationCanceled
				res.CanceledAt = &at
				res.UpdatedAt = at
				d.reservations[id] = res
				n++
			}
		}
	})
	return n, nil
}

func (r memReservations) CountActiveByEvent(_ context.Context, eventID uint64) (int, error) {
	n := 0
	r.do(func(d *memData) {
		for _, res := range d.reservations {
			if res.EventID == eventID && res.Status.Active() {
				n++
			}
		}
	})
	return n, nil
}

func (r memReservations) CountByOwner(_ context.Context, ownerID uint64) (int64, error) {
	var n int64
	r.do(func(d *memData) {
		for _, res := range d.reservations {
			if d.events[res.EventID].OwnerID == ownerID {
				n++
			}
		}
	})
	return n, nil
}

func (r memReservations) DeleteByEvent(_ context.Context, eventID uint64) error {
	r.do(func(d *memData) {
		for id, res := range d.reservations {
			if res.EventID == eventID {
				delete(d.reservations, id)
			}
		}
	})
	return nil
}

func (r memReservations) GetDetail(_ context.Context, id uint64) (*model.ReservationDetail, error) {
	var (
		out *model.ReservationDetail
	)
	r.do(func(d *memData) {
		res, ok := d.reservations[id]
		if !ok {
			return
		}
		det := d.detail(res, true, true)
		out = &det
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r memReservations) ListByUser(_ context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return r.list(func(res model.Reservation) bool { return res.UserID == userID }, true, false), nil
}

func (r memReservations) ListByEvent(_ context.Context, eventID uint64) ([]model.ReservationDetail, error) {
	return r.list(func(res model.Reservation) bool { return res.EventID == eventID }, false, true), nil
}

func (r memReservations) List(_ context.Context, f model.ReservationFilter) ([]model.ReservationDetail, int64, error) {
	all := r.list(func(res model.Reservation) bool {
		return (f.Status == "" || res.Status == f.Status) && (f.EventID == 0 || res.EventID == f.EventID)
	}, true, true)
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r memReservations) list(keep func(model.Reservation) bool, withEvent, withUser bool) []model.ReservationDetail {
	var out []model.ReservationDetail
	r.do(func(d *memData) {
		for _, res := range d.reservations {
			if keep(res) {
				out = append(out, d.detail(res, withEvent, withUser))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (d *memData) detail(res model.Reservation, withEvent, withUser bool) model.ReservationDetail {
	det := model.ReservationDetail{Reservation: res}
	if withEvent {
		e := d.events[res.EventID]
		det.Event = &model.EventSummary{ID: e.ID, Title: e.Title, Date: e.Date, Location: e.Location, Status: e.Status}
	}
	if withUser {
		u := d.users[res.UserID]
		det.User = &model.UserSummary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
	}
	return det
}

// users

type memUsers struct{ memRepo }

func (r memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.do(func(d *memData) { u, ok = d.users[id] })
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) || limit < 1 {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}

// capturePublisher records published notifications.
type capturePublisher struct {
	mu   sync.Mutex
	sent []queue.Notification
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, n queue.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *capturePublisher) types() []queue.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.NotificationType, 0, len(p.sent))
	for _, n := range p.sent {
		out = append(out, n.Type)
	}
	return out
}
