package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

// as authenticates every request on the route as the given user.
func as(id uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, id)
			c.Set(middleware.CtxRole, role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		details []string
	}{
		{"conflict", apperr.Conflict("not enough seats available"), http.StatusConflict, "not enough seats available", nil},
		{"validation", apperr.Validation("validation failed", "title is required"), http.StatusBadRequest, "validation failed", []string{"title is required"}},
		{"internal hides cause", apperr.Internal(sql.ErrConnDone, "store failure"), http.StatusInternalServerError, "Internal Server Error", nil},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error", nil},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded, retry in 2s"), http.StatusTooManyRequests, "rate limit exceeded, retry in 2s", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/api/x", func(echo.Context) error { return tt.err })
			rec := do(e, http.MethodGet, "/api/x", "")

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.status, body.StatusCode)
			assert.Equal(t, "/api/x", body.Path)
			assert.Equal(t, tt.message, body.Error)
			assert.Equal(t, tt.details, body.Errors)
			assert.NotContains(t, rec.Body.String(), "sql:")
		})
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	rec := do(newEcho(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).StatusCode)
}

type authStub struct {
	Authenticator
	registered []string
	logoutRaw  *string
}

func (s *authStub) Register(_ context.Context, email, _, first, last string) (service.Session, error) {
	s.registered = append(s.registered, email)
	return service.Session{
		User:         model.User{ID: 7, Email: email, FirstName: first, LastName: last, Role: model.RoleParticipant},
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    900,
	}, nil
}

func (s *authStub) Logout(_ context.Context, _ uint64, raw string) error {
	s.logoutRaw = &raw
	return nil
}

func TestRegister(t *testing.T) {
	stub := &authStub{}
	h := NewAuthHandler(stub)
	e := newEcho()
	e.POST("/api/auth/register", h.Register)

	rec := do(e, http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","password":"password123","firstName":"Ada","lastName":"Lovelace"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Data    service.Session `json:"data"`
		Path    string          `json:"path"`
		Success bool            `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "/api/auth/register", env.Path)
	assert.Equal(t, "access", env.Data.AccessToken)
	assert.Equal(t, model.RoleParticipant, env.Data.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	stub := &authStub{}
	e := newEcho()
	e.POST("/api/auth/register", NewAuthHandler(stub).Register)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"nope","password":"short","firstName":"Ada"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.ElementsMatch(t, []string{
		"email must be a valid email address",
		"password must be at least 8 characters",
		"lastName is required",
	}, body.Errors)
	assert.Empty(t, stub.registered)

	rec = do(e, http.MethodPost, "/api/auth/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rec).Error)
}

func TestLogoutWithoutBodyRevokesAll(t *testing.T) {
	stub := &authStub{}
	e := newEcho()
	e.POST("/api/auth/logout", NewAuthHandler(stub).Logout, as(3, model.RoleParticipant))

	rec := do(e, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.logoutRaw)
	assert.Empty(t, *stub.logoutRaw)
}

type eventStub struct {
	EventManager
	filter model.EventFilter
	caller service.Caller
}

func (s *eventStub) List(_ context.Context, caller service.Caller, f model.EventFilter) (service.EventPage, error) {
	s.caller, s.filter = caller, f
	return service.EventPage{Events: []model.Event{}, Total: 0, Page: 1, TotalPages: 0}, nil
}

func (s *eventStub) Get(_ context.Context, _ service.Caller, id uint64) (*model.Event, error) {
	return nil, apperr.NotFound("event %d not found", id)
}

func TestEventListParsesQuery(t *testing.T) {
	stub := &eventStub{}
	e := newEcho()
	h := NewEventHandler(stub, nil)
	e.GET("/api/events", h.List)

	rec := do(e, http.MethodGet, "/api/events?search=go&fromDate=2026-05-01&status=draft&page=2&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "go", stub.filter.Search)
	assert.Equal(t, model.EventDraft, stub.filter.Status)
	assert.Equal(t, 2, stub.filter.Page)
	assert.Equal(t, 5, stub.filter.Limit)
	require.NotNil(t, stub.filter.FromDate)
	assert.True(t, stub.filter.FromDate.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Zero(t, stub.caller.ID, "guest request")

	rec = do(e, http.MethodGet, "/api/events?page=two", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, http.MethodGet, "/api/events?fromDate=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventGetErrors(t *testing.T) {
	e := newEcho()
	e.GET("/api/events/:id", NewEventHandler(&eventStub{}, nil).Get)

	rec := do(e, http.MethodGet, "/api/events/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "event 9 not found", decodeError(t, rec).Error)

	rec = do(e, http.MethodGet, "/api/events/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type reservationStub struct {
	ReservationManager
	seats   int
	eventID uint64
	caller  service.Caller
}

func (s *reservationStub) Create(_ context.Context, caller service.Caller, eventID uint64, seats int) (*model.Reservation, error) {
	s.caller, s.eventID, s.seats = caller, eventID, seats
	return &model.Reservation{ID: 1, EventID: eventID, UserID: caller.ID, NumberOfSeats: seats, Status: model.ReservationPending}, nil
}

func (s *reservationStub) TicketPDF(_ context.Context, caller service.Caller, id uint64) ([]byte, error) {
	if caller.ID != 3 {
		return nil, apperr.Forbidden("ticket not available")
	}
	return []byte("%PDF-1.3 fake"), nil
}

func TestReservationCreate(t *testing.T) {
	stub := &reservationStub{}
	e := newEcho()
	e.POST("/api/reservations", NewReservationHandler(stub).Create, as(3, model.RoleParticipant))

	rec := do(e, http.MethodPost, "/api/reservations", `{"eventId":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, stub.seats, "numberOfSeats defaults to one")
	assert.Equal(t, uint64(4), stub.eventID)
	assert.Equal(t, service.Caller{ID: 3, Role: model.RoleParticipant}, stub.caller)

	rec = do(e, http.MethodPost, "/api/reservations", `{"eventId":4,"numberOfSeats":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, stub.seats)

	rec = do(e, http.MethodPost, "/api/reservations", `{"numberOfSeats":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"eventId is required"}, decodeError(t, rec).Errors)
}

func TestReservationCreateRequiresCaller(t *testing.T) {
	e := newEcho()
	e.POST("/api/reservations", NewReservationHandler(&reservationStub{}).Create)
	rec := do(e, http.MethodPost, "/api/reservations", `{"eventId":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTicketDownload(t *testing.T) {
	stub := &reservationStub{}
	e := newEcho()
	h := NewReservationHandler(stub)
	e.GET("/api/owner/:id/ticket", h.Ticket, as(3, model.RoleParticipant))
	e.GET("/api/other/:id/ticket", h.Ticket, as(4, model.RoleParticipant))

	rec := do(e, http.MethodGet, "/api/owner/12/ticket", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "attachment; filename=ticket-12.pdf", rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = do(e, http.MethodGet, "/api/other/12/ticket", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/healthz", Health)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
