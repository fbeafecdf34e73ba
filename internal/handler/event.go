package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// EventManager is the event API behind /events.
type EventManager interface {
	Create(ctx context.Context, caller service.Caller, e model.Event) (*model.Event, error)
	Get(ctx context.Context, caller service.Caller, id uint64) (*model.Event, error)
	List(ctx context.Context, caller service.Caller, f model.EventFilter) (service.EventPage, error)
	Update(ctx context.Context, caller service.Caller, id uint64, p model.EventPatch) (*model.Event, error)
	Publish(ctx context.Context, caller service.Caller, id uint64) (*model.Event, error)
	Delete(ctx context.Context, caller service.Caller, id uint64) error
	Reservations(ctx context.Context, caller service.Caller, id uint64) ([]model.ReservationDetail, error)
	Dashboard(ctx context.Context, caller service.Caller) (model.DashboardStats, error)
}

// EventCanceler cancels an event together with its active reservations.
type EventCanceler interface {
	CancelEvent(ctx context.Context, caller service.Caller, eventID uint64) (*model.Event, error)
}

type EventHandler struct {
	events   EventManager
	canceler EventCanceler
}

func NewEventHandler(events EventManager, canceler EventCanceler) *EventHandler {
	return &EventHandler{events: events, canceler: canceler}
}

type createEventReq struct {
	Title       string    `json:"title" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"required,min=10"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required,max=255"`
	Capacity    int       `json:"capacity" validate:"required,min=1,max=10000"`
}

type updateEventReq struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string    `json:"description" validate:"omitempty,min=10"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Capacity    *int       `json:"capacity" validate:"omitempty,min=1,max=10000"`
}

func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.events.Create(ctx, callerOf(c), model.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, ev)
}

// List serves the public catalogue.  Guests and participants only ever see
// published events.
func (h *EventHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	from, err := queryTime(c, "fromDate")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.events.List(ctx, callerOf(c), model.EventFilter{
		Search:   c.QueryParam("search"),
		FromDate: from,
		Status:   model.EventStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.events.Get(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ev)
}

func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req updateEventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.events.Update(ctx, callerOf(c), id, model.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ev)
}

func (h *EventHandler) Publish(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.events.Publish(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ev)
}

// Cancel cancels the event and every active reservation on it.
func (h *EventHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.canceler.CancelEvent(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ev)
}

func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.events.Delete(ctx, callerOf(c), id); err != nil {
		return err
	}
	return message(c, "Event with ID %d deleted successfully", id)
}

func (h *EventHandler) Reservations(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.events.Reservations(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out)
}

func (h *EventHandler) Dashboard(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.events.Dashboard(ctx, callerOf(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, stats)
}
