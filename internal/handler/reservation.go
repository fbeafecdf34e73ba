package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// ReservationManager is the booking workflow behind /reservations.
type ReservationManager interface {
	Create(ctx context.Context, caller service.Caller, eventID uint64, seats int) (*model.Reservation, error)
	Confirm(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)
	Refuse(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)
	CancelByUser(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)
	CancelByAdmin(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)
	Get(ctx context.Context, caller service.Caller, id uint64) (*model.ReservationDetail, error)
	ListMine(ctx context.Context, caller service.Caller) ([]model.ReservationDetail, error)
	List(ctx context.Context, caller service.Caller, f model.ReservationFilter) (service.ReservationPage, error)
	TicketPDF(ctx context.Context, caller service.Caller, id uint64) ([]byte, error)
}

type ReservationHandler struct {
	reservations ReservationManager
}

func NewReservationHandler(r ReservationManager) *ReservationHandler {
	return &ReservationHandler{reservations: r}
}

type createReservationReq struct {
	EventID       uint64 `json:"eventId" validate:"required"`
	NumberOfSeats *int   `json:"numberOfSeats"`
}

// Create books seats for the caller.  Responds 409 when the event has fewer
// seats left than requested.
func (h *ReservationHandler) Create(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	seats := 1
	if req.NumberOfSeats != nil {
		seats = *req.NumberOfSeats
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.Create(ctx, caller, req.EventID, seats)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, res)
}

func (h *ReservationHandler) Mine(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.reservations.ListMine(ctx, caller)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out)
}

func (h *ReservationHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	eventID, err := queryInt(c, "eventId")
	if err != nil {
		return err
	}
	if eventID < 0 {
		eventID = 0
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.reservations.List(ctx, callerOf(c), model.ReservationFilter{
		Status:  model.ReservationStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
		EventID: uint64(eventID),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out)
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.Get(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res)
}

type transitionFunc func(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)

// transition adapts a single-reservation state change to a handler.
func (h *ReservationHandler) transition(fn transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := fn(ctx, callerOf(c), id)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, res)
	}
}

func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.transition(h.reservations.Confirm)(c)
}

func (h *ReservationHandler) Refuse(c echo.Context) error {
	return h.transition(h.reservations.Refuse)(c)
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.transition(h.reservations.CancelByUser)(c)
}

func (h *ReservationHandler) CancelByAdmin(c echo.Context) error {
	return h.transition(h.reservations.CancelByAdmin)(c)
}

// Ticket streams the PDF ticket of a confirmed reservation.
func (h *ReservationHandler) Ticket(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pdf, err := h.reservations.TicketPDF(ctx, callerOf(c), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=ticket-%d.pdf", id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
