package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
)

// RegisterEvents registers /events.  Reads accept guests and are cached for
// them; writes require an administrator, and ownership is checked by the
// service.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, opt Options) {
	g := e.Group(opt.Prefix + "/events")

	optional := middleware.OptionalJWT(opt.JWTSecret)
	cache := middleware.NewRedisCache(opt.Cache, opt.Redis)
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	}

	// Static segment first so it never resolves as an :id.
	g.GET("/stats/dashboard", h.Dashboard, admin...)

	g.GET("", h.List, optional, cache)
	g.GET("/:id", h.Get, optional, cache)

	g.POST("", h.Create, admin...)
	g.PATCH("/:id", h.Update, admin...)
	g.PATCH("/:id/publish", h.Publish, admin...)
	g.PATCH("/:id/cancel", h.Cancel, admin...)
	g.DELETE("/:id", h.Delete, admin...)
	g.GET("/:id/reservations", h.Reservations, admin...)
}
