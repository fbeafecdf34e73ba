package router

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/middleware"
)

// Options carries what route registration needs besides the handlers.
// Redis may be nil, in which case rate limiting and caching are skipped.
type Options struct {
	Prefix      string
	JWTSecret   string
	CORSOrigins []string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Redis       *redis.Client
}

// Use installs the error envelope, validator and global middleware.
func Use(e *echo.Echo, opt Options) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opt.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{
			echo.HeaderContentDisposition, echo.HeaderXRequestID,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
	}))
	e.Use(metrics.Middleware())
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers /auth.  Credential endpoints sit behind the rate
// limiter; logout and me need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)

	g := e.Group(opt.Prefix + "/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, limit)

	auth := middleware.JWTAuth(opt.JWTSecret)
	g.POST("/logout", a.Logout, auth)
	g.GET("/me", a.Me, auth)
}
