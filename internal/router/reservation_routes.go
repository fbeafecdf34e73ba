package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
)

// RegisterReservations registers /reservations.  Every route needs a valid
// access token; state changes other than the owner's own cancel are admin
// only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, opt Options) {
	g := e.Group(opt.Prefix+"/reservations", middleware.JWTAuth(opt.JWTSecret))
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("", h.Create, middleware.NewTokenBucket(opt.RateLimit, opt.Redis))
	g.GET("/my", h.Mine)
	g.GET("", h.List, admin)
	g.GET("/:id", h.Get)
	g.GET("/:id/ticket", h.Ticket)
	g.PATCH("/:id/confirm", h.Confirm, admin)
	g.PATCH("/:id/refuse", h.Refuse, admin)
	g.DELETE("/:id", h.Cancel)
	g.DELETE("/:id/admin", h.CancelByAdmin, admin)
}
