package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := model.Event{Title: "  Rust vs Go  ", Description: "A friendly debate", Date: time.Now().Add(48 * time.Hour), Location: "Paris", Capacity: 50}

	_, err := f.events.Create(ctx, f.alice, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	past := in
	past.Date = time.Now().Add(-time.Hour)
	_, err = f.events.Create(ctx, f.admin, past)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	e, err := f.events.Create(ctx, f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, "Rust vs Go", e.Title)
	assert.Equal(t, model.EventDraft, e.Status)
	assert.Equal(t, 50, e.AvailableSeats)
	assert.Equal(t, f.admin.ID, e.OwnerID)
	assert.NotZero(t, e.ID)
}

func TestGetEventVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := f.event(10, model.EventDraft)
	published := f.event(10, model.EventPublished)

	_, err := f.events.Get(ctx, f.alice, draft.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.events.Get(ctx, Caller{}, draft.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.events.Get(ctx, f.admin, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventDraft, got.Status)

	_, err = f.events.Get(ctx, Caller{}, published.ID)
	assert.NoError(t, err)
	_, err = f.events.Get(ctx, f.admin, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.event(10, model.EventDraft)
	for i := 0; i < 3; i++ {
		f.event(10, model.EventPublished)
	}

	page, err := f.events.List(ctx, Caller{}, model.EventFilter{Status: model.EventDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total, "visitors only see published events")
	for _, e := range page.Events {
		assert.Equal(t, model.EventPublished, e.Status)
	}

	page, err = f.events.List(ctx, f.admin, model.EventFilter{Status: model.EventDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.events.List(ctx, f.admin, model.EventFilter{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Events, 2)

	page, err = f.events.List(ctx, f.admin, model.EventFilter{Search: "nothing matches"})
	require.NoError(t, err)
	assert.NotNil(t, page.Events)
	assert.Zero(t, page.TotalPages)

	_, err = f.events.List(ctx, f.admin, model.EventFilter{Status: "ARCHIVED"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateEventCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.event(10, model.EventPublished)
	_, err := f.reservations.Create(ctx, f.alice, ev.ID, 3)
	require.NoError(t, err)

	got, err := f.events.Update(ctx, f.admin, ev.ID, model.EventPatch{Capacity: ptr(5), Title: ptr("Smaller room")})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Capacity)
	assert.Equal(t, 2, got.AvailableSeats)
	assert.Equal(t, "Smaller room", f.store.event(ev.ID).Title)

	_, err = f.events.Update(ctx, f.admin, ev.ID, model.EventPatch{Capacity: ptr(2)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 5, f.store.event(ev.ID).Capacity)

	got, err = f.events.Update(ctx, f.admin, ev.ID, model.EventPatch{Capacity: ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, 17, got.AvailableSeats)

	_, err = f.events.Update(ctx, f.admin, ev.ID, model.EventPatch{Date: ptr(time.Now().Add(-time.Hour))})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.events.Update(ctx, f.otherAdmin, ev.ID, model.EventPatch{Title: ptr("Hijack")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.events.Update(ctx, f.alice, ev.ID, model.EventPatch{Title: ptr("Hijack")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.reservations.CancelEvent(ctx, f.admin, ev.ID)
	require.NoError(t, err)
	_, err = f.events.Update(ctx, f.admin, ev.ID, model.EventPatch{Title: ptr("Too late")})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestPublishEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.event(10, model.EventDraft)

	_, err := f.events.Publish(ctx, f.otherAdmin, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.events.Publish(ctx, f.admin, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventPublished, got.Status)
	assert.Equal(t, model.EventPublished, f.store.event(ev.ID).Status)

	_, err = f.events.Publish(ctx, f.admin, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.event(10, model.EventPublished)
	res, err := f.reservations.Create(ctx, f.alice, ev.ID, 1)
	require.NoError(t, err)

	err = f.events.Delete(ctx, f.admin, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.reservations.CancelByUser(ctx, f.alice, res.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.events.Delete(ctx, f.otherAdmin, ev.ID), apperr.ErrForbidden)
	require.NoError(t, f.events.Delete(ctx, f.admin, ev.ID))

	_, err = f.events.Get(ctx, f.admin, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.reservations.Get(ctx, f.admin, res.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEventReservations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.event(10, model.EventPublished)
	_, err := f.reservations.Create(ctx, f.alice, ev.ID, 1)
	require.NoError(t, err)
	_, err = f.reservations.Create(ctx, f.bob, ev.ID, 2)
	require.NoError(t, err)

	list, err := f.events.Reservations(ctx, f.admin, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].User)

	_, err = f.events.Reservations(ctx, f.otherAdmin, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.event(10, model.EventPublished)
	b := f.event(4, model.EventPublished)
	f.event(10, model.EventDraft)
	f.store.addEvent(model.Event{Title: "Elsewhere", Date: time.Now().Add(time.Hour), Capacity: 5, Status: model.EventPublished, OwnerID: f.otherAdmin.ID})

	_, err := f.reservations.Create(ctx, f.alice, a.ID, 3)
	require.NoError(t, err)
	_, err = f.reservations.Create(ctx, f.bob, b.ID, 1)
	require.NoError(t, err)

	_, err = f.events.Dashboard(ctx, f.alice)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stats, err := f.events.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.Equal(t, int64(3), stats.UpcomingEvents, "upcoming counts every owner's published events")
	assert.Equal(t, int64(2), stats.TotalReservations)
	assert.Equal(t, 27.5, stats.AvgFillRate)
	assert.Equal(t, map[model.EventStatus]int64{
		model.EventDraft: 1, model.EventPublished: 2, model.EventCanceled: 0,
	}, stats.StatusDistribution)
}

func TestAverageFillRate(t *testing.T) {
	tests := []struct {
		name    string
		samples []model.FillSample
		want    float64
	}{
		{"none", nil, 0},
		{"empty and full", []model.FillSample{{Capacity: 10, AvailableSeats: 10}, {Capacity: 4, AvailableSeats: 0}}, 50},
		{"repeating decimal", []model.FillSample{{Capacity: 3, AvailableSeats: 2}}, 33.33},
		{"two thirds", []model.FillSample{{Capacity: 3, AvailableSeats: 1}}, 66.67},
		{"zero capacity ignored", []model.FillSample{{Capacity: 0}, {Capacity: 8, AvailableSeats: 6}}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AverageFillRate(tt.samples))
		})
	}
}
